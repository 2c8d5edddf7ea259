package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-recognizer/internal/enrollment"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Inspect the stored gallery",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored identities",
	RunE:  runFacesList,
}

var facesVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every stored image yields exactly one face",
	Long: `Run the detector over every stored image and report the images that
would be skipped or are ambiguous when the gallery is loaded.`,
	RunE: runFacesVerify,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesVerifyCmd)

	facesListCmd.Flags().Bool("json", false, "Output as JSON")
	facesVerifyCmd.Flags().Int("workers", 0, "Parallel detector calls (overrides config)")
}

type storedFace struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Modified string `json:"modified"`
}

func runFacesList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	entries, err := c.store.Load()
	if err != nil {
		return err
	}

	faces := make([]storedFace, 0, len(entries))
	for _, e := range entries {
		faces = append(faces, storedFace{Name: e.Name, File: e.ImageRef, Modified: e.ModTime.Format("2006-01-02 15:04")})
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(faces)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFILE\tMODIFIED")
	fmt.Fprintln(w, "----\t----\t--------")
	for _, f := range faces {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, f.File, f.Modified)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d identities in %s\n", len(faces), cfg.Store.Dir)
	return nil
}

func runFacesVerify(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if workers := mustGetInt(cmd, "workers"); workers > 0 {
		cfg.Matcher.Workers = workers
	}
	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	entries, err := c.store.Load()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No stored images")
		return nil
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Detecting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	reports, err := c.service.Inspect(context.Background(), entries, func(enrollment.EntryReport) {
		_ = bar.Add(1)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	var usable, ambiguous int
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tFACES\tPROBLEM")
	fmt.Fprintln(w, "----\t-----\t-------")
	for _, r := range reports {
		switch {
		case !r.Usable():
			fmt.Fprintf(w, "%s\t%d\t%v\n", r.Entry.ImageRef, r.Faces, r.Err)
		case r.Faces > 1:
			ambiguous++
			usable++
			fmt.Fprintf(w, "%s\t%d\t%s\n", r.Entry.ImageRef, r.Faces, "several faces, most confident used")
		default:
			usable++
		}
	}
	w.Flush()

	fmt.Printf("\nUsable: %d/%d (ambiguous: %d, skipped: %d)\n",
		usable, len(reports), ambiguous, len(reports)-usable)
	if usable < len(reports) {
		return fmt.Errorf("%d stored images cannot be enrolled", len(reports)-usable)
	}
	return nil
}
