package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a person from an image file",
	Long: `Enroll a person from an image containing exactly one face.

The image is normalized, stored as <name>.jpg in the store directory and its
face descriptor replaces any previous descriptor for the same name.

Examples:
  # Enroll using the file name as the person name
  face-recognizer enroll --image alice.png

  # Enroll under an explicit name
  face-recognizer enroll --image webcam.jpg --name "Jan Novák"`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("image", "", "Image file to enroll (required)")
	enrollCmd.Flags().String("name", "", "Person name (defaults to the image file name)")
	_ = enrollCmd.MarkFlagRequired("image")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	imagePath := mustGetString(cmd, "image")
	name := mustGetString(cmd, "name")
	if name == "" {
		base := filepath.Base(imagePath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	data, err := os.ReadFile(imagePath) //nolint:gosec // user supplied input file
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	identity, err := c.service.Enroll(context.Background(), name, data)
	if err != nil {
		return fmt.Errorf("enrolling %q: %w", name, err)
	}

	fmt.Printf("Enrolled %s (%d-dimensional descriptor) as %s\n",
		identity.Name, len(identity.Descriptor), filepath.Join(cfg.Store.Dir, identity.ImageRef))
	return nil
}
