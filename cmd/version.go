package cmd

import (
	"fmt"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/camera"
	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("face-recognizer %s\n", Version)
		fmt.Printf("  Commit:    %s\n", CommitSHA)
		fmt.Printf("  Built:     %s\n", BuildDate)
		// Native backends depend on build tags.
		fmt.Printf("  Detectors: %s\n", strings.Join(detector.Backends(), ", "))
		fmt.Printf("  Cameras:   %s\n", strings.Join(camera.Backends(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
