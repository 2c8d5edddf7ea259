package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/camera"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Recognize every face in an image",
	Long: `Detect every face in an image and match it against the stored gallery.

Examples:
  # Print a table of recognized faces
  face-recognizer match --image group.jpg

  # Use a stricter threshold (lower = stricter matching)
  face-recognizer match --image group.jpg --threshold 0.45

  # Output as JSON
  face-recognizer match --image group.jpg --json`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("image", "", "Image file to recognize (required)")
	matchCmd.Flags().Float64("threshold", 0, "Maximum match distance (overrides config)")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
	_ = matchCmd.MarkFlagRequired("image")
}

func runMatch(cmd *cobra.Command, args []string) error {
	imagePath := mustGetString(cmd, "image")
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(imagePath) //nolint:gosec // user supplied input file
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	width, height, err := store.DecodeSize(data)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Matcher.Threshold = threshold
	}
	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.service.Reload(ctx); err != nil {
		return err
	}

	frame := &camera.Frame{Data: data, Width: width, Height: height, CapturedAt: time.Now()}
	event, err := recognition.Recognize(ctx, c.detector, c.service.Matcher(), frame)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(event)
	}

	if len(event.Faces) == 0 {
		fmt.Println("No faces found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLABEL\tDISTANCE\tMATCH\tBOX")
	fmt.Fprintln(w, "-\t-----\t--------\t-----\t---")
	for i, face := range event.Faces {
		distance := "-"
		if c.service.Matcher().Len() > 0 {
			distance = fmt.Sprintf("%.3f", face.Distance)
		}
		b := face.BoundingBox
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f%%\t%.0f,%.0f-%.0f,%.0f\n",
			i+1, face.Label, distance, face.Confidence, b.X1, b.Y1, b.X2, b.Y2)
	}
	w.Flush()

	fmt.Printf("\nGallery: %d identities, threshold %.2f\n", c.service.Matcher().Len(), c.service.Matcher().Threshold())
	return nil
}
