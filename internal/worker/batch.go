package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/hrintel/internal/analyze"
	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/source"
)

// Analyzer is the part of analyze.Analyzer the batch needs
type Analyzer interface {
	Run(ctx context.Context, doc model.Document) analyze.Report
}

// Fetcher loads documents by URL
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (model.Document, error)
}

// AnalysisJob loads one entry and analyzes it
type AnalysisJob struct {
	Index int
	Entry string
	batch *BatchProcessor
}

// Execute loads and analyzes the entry
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	res := &FileResult{Index: j.Index, Entry: j.Entry}

	doc, err := j.batch.load(ctx, j.Entry)
	if err != nil {
		res.Err = err
		return res
	}
	res.Document = doc
	res.Report = j.batch.analyzer.Run(ctx, doc)
	return res
}

// FileResult is the outcome for one batch entry. Err is set only when
// the entry could not be loaded; a degraded analysis is reported in
// Report.Err.
type FileResult struct {
	Index    int
	Entry    string
	Document model.Document
	Report   analyze.Report
	Err      error
}

// GetError returns the load error
func (r *FileResult) GetError() error {
	return r.Err
}

// BatchProcessor analyzes many documents concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	fetcher     Fetcher
	concurrency int
	log         logrus.FieldLogger
}

// NewBatchProcessor creates a batch processor. fetcher may be nil, URL
// entries then fail.
func NewBatchProcessor(analyzer Analyzer, fetcher Fetcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		fetcher:     fetcher,
		concurrency: concurrency,
		log:         logrus.StandardLogger(),
	}
}

// ProcessFiles analyzes every entry (a file path or an http(s) URL) and
// returns the results in input order
func (b *BatchProcessor) ProcessFiles(ctx context.Context, entries []string) []*FileResult {
	results := make([]*FileResult, len(entries))
	if len(entries) == 0 {
		return results
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, entry := range entries {
		if !pool.Submit(&AnalysisJob{Index: i, Entry: entry, batch: b}) {
			break
		}
	}

	for _, r := range pool.Wait() {
		fr := r.(*FileResult)
		results[fr.Index] = fr
	}

	// Entries never run because ctx was cancelled
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = &FileResult{Index: i, Entry: entries[i], Err: err}
		}
	}

	b.log.WithFields(logrus.Fields{
		"entries":     len(entries),
		"concurrency": b.concurrency,
	}).Debug("batch finished")
	return results
}

// ProcessListFile reads entries from listPath and processes them
func (b *BatchProcessor) ProcessListFile(ctx context.Context, listPath string) ([]*FileResult, error) {
	entries, err := ReadEntriesFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	return b.ProcessFiles(ctx, entries), nil
}

func (b *BatchProcessor) load(ctx context.Context, entry string) (model.Document, error) {
	if isURL(entry) {
		if b.fetcher == nil {
			return model.Document{}, fmt.Errorf("no fetcher configured for %s", entry)
		}
		return b.fetcher.Fetch(ctx, entry)
	}
	return source.LoadFile(entry)
}

// ReadEntriesFromFile reads one file path or URL per line. Blank lines
// and # comments are skipped, duplicates dropped, and relative paths
// resolved against the list file's directory.
func ReadEntriesFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var entries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !isURL(line) && !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			entries = append(entries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return entries, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
