package facematch

import (
	"cmp"
	"slices"
)

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	area1 := (bbox1[2] - bbox1[0]) * (bbox1[3] - bbox1[1])
	area2 := (bbox2[2] - bbox2[0]) * (bbox2[3] - bbox2[1])
	union := area1 + area2 - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// ConvertPixelBBoxToRelative converts pixel bbox to relative (0-1) coordinates.
// Input bbox is [x1, y1, x2, y2] in pixels, output is [x1, y1, x2, y2] clamped to the frame.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	clamp := func(v float64) float64 { return min(max(v, 0), 1) }
	return []float64{
		clamp(bbox[0] / float64(width)),
		clamp(bbox[1] / float64(height)),
		clamp(bbox[2] / float64(width)),
		clamp(bbox[3] / float64(height)),
	}
}

// SuppressOverlaps performs greedy non-maximum suppression and returns the
// indices of the boxes to keep, in their original order. A box is dropped when
// it overlaps a higher scoring kept box by more than iouThreshold.
func SuppressOverlaps(boxes [][]float64, scores []float64, iouThreshold float64) []int {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	score := func(i int) float64 {
		if i < len(scores) {
			return scores[i]
		}
		return 0
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(score(b), score(a)) })

	var kept []int
	for _, i := range order {
		overlaps := false
		for _, k := range kept {
			if ComputeIoU(boxes[i], boxes[k]) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, i)
		}
	}
	slices.Sort(kept)
	return kept
}
