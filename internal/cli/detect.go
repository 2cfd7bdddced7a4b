package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var (
	detectURL  string
	detectJSON string
)

var detectCmd = &cobra.Command{
	Use:   "detect [file]",
	Short: "Detect the HURIDOCS format of a document and list its fields",
	Long: `Detect checks a document for HURIDOCS format headers and numbered field
rows and prints the format with all recognised fields. No backend is used.

Example:
  hrintel detect bericht.md
  hrintel detect --url https://example.org/fall-17.html --json -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringVar(&detectURL, "url", "", "fetch the document from a URL")
	detectCmd.Flags().StringVar(&detectJSON, "json", "", "write the detected document as JSON to this path (- for stdout)")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTP.Timeout+cfg.Analysis.Timeout)
	defer cancel()

	doc, _, err := loadInput(ctx, a, args, detectURL)
	if err != nil {
		return err
	}

	detected := a.detector.Detect(doc.Content)
	if detectJSON != "" {
		return writeJSON(os.Stdout, detectJSON, detected)
	}
	printDetected(os.Stdout, detected)
	return nil
}
