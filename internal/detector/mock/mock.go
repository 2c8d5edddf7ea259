// Package mock provides a scriptable detector for tests.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/face-recognizer/internal/detector"
)

// Detector returns detections keyed by the exact image bytes.
type Detector struct {
	mu         sync.RWMutex
	detections map[string][]detector.Detection
	calls      int

	// Default is returned for images without a scripted response.
	Default []detector.Detection

	// Error injection
	DetectError error

	// Block, when set, makes Detect wait until it is closed or ctx is done.
	Block chan struct{}
	// Started receives a value each time Detect is entered, if set.
	Started chan struct{}
}

// NewDetector creates an empty mock detector.
func NewDetector() *Detector {
	return &Detector{detections: make(map[string][]detector.Detection)}
}

// SetFaces scripts the detections returned for image.
func (m *Detector) SetFaces(image []byte, detections ...detector.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections[string(image)] = detections
}

// Calls returns how many times Detect was invoked.
func (m *Detector) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Detect implements detector.Detector.
func (m *Detector) Detect(ctx context.Context, image []byte) ([]detector.Detection, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Started != nil {
		select {
		case m.Started <- struct{}{}:
		default:
		}
	}
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.DetectError != nil {
		return nil, m.DetectError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if dets, ok := m.detections[string(image)]; ok {
		return slices.Clone(dets), nil
	}
	return slices.Clone(m.Default), nil
}

// Face builds a detection with the given descriptor and a default box.
func Face(descriptor ...float32) detector.Detection {
	return detector.Detection{
		BoundingBox: detector.BoundingBox{X1: 10, Y1: 10, X2: 110, Y2: 130},
		Descriptor:  descriptor,
		Score:       0.99,
	}
}
