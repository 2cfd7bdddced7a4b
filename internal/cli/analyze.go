package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hrintel/internal/analyze"
	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/store"
)

var (
	analyzeURL      string
	analyzeJSON     string
	analyzeGeneric  bool
	analyzeStrict   bool
	analyzeDeadline time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a document with the configured backend",
	Long: `Analyze detects the HURIDOCS format of a document and asks the configured
backend for a structured analysis. Documents without a recognised format are
analyzed generically.

A failing backend yields the degraded result (status "degraded", all fields
empty); with --strict the command then exits non-zero.

Example:
  hrintel analyze fall-17.md --provider openai --model gpt-4o-mini
  hrintel analyze --url https://example.org/bericht.html --json report.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "fetch the document from a URL")
	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "write the analysis as JSON to this path (- for stdout)")
	analyzeCmd.Flags().BoolVar(&analyzeGeneric, "generic", false, "skip format detection and use the generic prompt")
	analyzeCmd.Flags().BoolVar(&analyzeStrict, "strict", false, "exit non-zero when the analysis is degraded")
	analyzeCmd.Flags().DurationVar(&analyzeDeadline, "timeout", 0, "backend deadline (default: analysis.timeout)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if analyzeDeadline > 0 {
		cfg.Analysis.Timeout = analyzeDeadline
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.Timeout*2)
	doc, src, err := loadInput(fetchCtx, a, args, analyzeURL)
	cancel()
	if err != nil {
		return err
	}

	report := runOne(ctx, a, doc)
	saveReport(ctx, a, doc, report)

	if analyzeJSON != "" {
		if err := writeJSON(os.Stdout, analyzeJSON, newAnalysisOutput(src, doc, report)); err != nil {
			return err
		}
		if analyzeJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Analysis written to %s\n", analyzeJSON)
		}
	} else {
		printAnalysis(os.Stdout, src, report)
	}

	if analyzeStrict && report.Err != nil {
		return fmt.Errorf("analysis degraded: %w", report.Err)
	}
	return nil
}

func runOne(ctx context.Context, a *app, doc model.Document) analyze.Report {
	if analyzeGeneric {
		return a.analyzer.RunGeneric(ctx, doc)
	}
	return a.analyzer.Run(ctx, doc)
}

// saveReport records the analysis when the history store is enabled
func saveReport(ctx context.Context, a *app, doc model.Document, report analyze.Report) {
	if a.store == nil {
		return
	}
	rec := &store.Record{
		Title:       doc.Title,
		DocType:     doc.Type,
		Format:      report.Format,
		Status:      report.Result.Status,
		ContentHash: store.ContentHash(doc.Content),
		Result:      report.Result,
	}
	if err := a.store.Save(ctx, rec); err != nil {
		a.log.WithError(err).Warn("failed to save analysis")
		return
	}
	a.log.WithField("id", rec.ID).Debug("analysis saved")
}
