package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Analyze many documents in parallel",
	Long: `Batch reads a list of documents (one file path or http(s) URL per line,
# starts a comment) and analyzes them concurrently. Relative paths are
resolved against the list file's directory. One JSON report per document
is written to the output directory.

Example:
  hrintel batch faelle.txt
  hrintel batch faelle.txt --concurrency 8 --output-dir ./analysen`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./hrintel-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	listFile := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n%s\n  hrintel batch\n%s\n\n", rule, rule)
	fmt.Fprintf(os.Stderr, "  List file:    %s\n", listFile)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if a.provider != nil {
		fmt.Fprintf(os.Stderr, "  Backend:      %s/%s\n", a.provider.Name(), cfg.LLM.Model)
	} else {
		fmt.Fprintf(os.Stderr, "  Backend:      none (results will be degraded)\n")
	}
	fmt.Fprintln(os.Stderr)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(a.analyzer, a.fetcher, cfg.Concurrency.Workers)
	results, err := processor.ProcessListFile(ctx, listFile)
	if err != nil {
		return fmt.Errorf("process list: %w", err)
	}

	var analyzed, degraded, failed int
	used := make(map[string]int)

	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Entry, r.Err)
			continue
		}

		saveReport(ctx, a, r.Document, r.Report)

		stem := sanitizeFilename(r.Entry)
		if n := used[stem]; n > 0 {
			stem = fmt.Sprintf("%s-%d", stem, n+1)
		}
		used[stem]++

		path := filepath.Join(outputDir, stem+".json")
		if err := writeJSON(os.Stdout, path, newAnalysisOutput(r.Entry, r.Document, r.Report)); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Entry, err)
			continue
		}

		if r.Report.Err != nil {
			degraded++
			fmt.Fprintf(os.Stderr, "⚠ %s (degraded: %v)\n", r.Entry, r.Report.Err)
			continue
		}
		analyzed++
		fmt.Fprintf(os.Stderr, "✓ %s (%s)\n", r.Entry, formatLabel(r.Report.Format))
	}

	fmt.Fprintf(os.Stderr, "\n%s\n  Batch complete\n%s\n\n", rule, rule)
	fmt.Fprintf(os.Stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Analyzed:  %d\n", analyzed)
	fmt.Fprintf(os.Stderr, "  Degraded:  %d\n", degraded)
	fmt.Fprintf(os.Stderr, "  Failed:    %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n\n", outputDir)

	return nil
}

func formatLabel(f model.DocumentFormat) string {
	if f == "" {
		return "generic"
	}
	return string(f)
}
