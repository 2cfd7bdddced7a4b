package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/hrintel/internal/analyze"
	"github.com/ppiankov/hrintel/internal/model"
)

// mockAnalyzer echoes the document title into the keywords
type mockAnalyzer struct {
	calls atomic.Int32
	delay time.Duration
}

func (m *mockAnalyzer) Run(ctx context.Context, doc model.Document) analyze.Report {
	m.calls.Add(1)
	time.Sleep(m.delay)
	result := model.EmptyAnalysis()
	result.Status = model.StatusOK
	result.Keywords = []string{doc.Title}
	return analyze.Report{Result: result, Format: model.FormatUnknown}
}

type mockFetcher struct{}

func (mockFetcher) Fetch(ctx context.Context, rawURL string) (model.Document, error) {
	if strings.Contains(rawURL, "fail") {
		return model.Document{}, errors.New("fetch: connection refused")
	}
	return model.Document{Title: "remote", Content: "x"}, nil
}

func writeDocs(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("Inhalt von "+name), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestBatchProcessor_ProcessFiles_InputOrder(t *testing.T) {
	paths := writeDocs(t, "a.txt", "b.md", "c.csv", "d.txt", "e.txt", "f.txt")
	analyzer := &mockAnalyzer{delay: 5 * time.Millisecond}
	processor := NewBatchProcessor(analyzer, nil, 3)

	results := processor.ProcessFiles(context.Background(), paths)

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Errorf("unexpected error for %s: %v", res.Entry, res.Err)
			continue
		}
		if res.Entry != paths[i] || res.Index != i {
			t.Errorf("result %d is for %s, expected %s", i, res.Entry, paths[i])
		}
		want := strings.TrimSuffix(filepath.Base(paths[i]), filepath.Ext(paths[i]))
		if res.Report.Result.Keywords[0] != want {
			t.Errorf("result %d analyzed %q, expected %q", i, res.Report.Result.Keywords[0], want)
		}
	}
	if analyzer.calls.Load() != int32(len(paths)) {
		t.Errorf("expected %d analyses, got %d", len(paths), analyzer.calls.Load())
	}
}

func TestBatchProcessor_ProcessFiles_LoadErrors(t *testing.T) {
	paths := writeDocs(t, "ok.txt")
	entries := []string{
		paths[0],
		filepath.Join(filepath.Dir(paths[0]), "missing.txt"),
		filepath.Join(filepath.Dir(paths[0]), "scan.pdf"),
	}
	analyzer := &mockAnalyzer{}
	results := NewBatchProcessor(analyzer, nil, 2).ProcessFiles(context.Background(), entries)

	if results[0].Err != nil {
		t.Errorf("expected first entry to succeed, got %v", results[0].Err)
	}
	if results[1].Err == nil || results[2].Err == nil {
		t.Error("expected load errors for missing and unsupported files")
	}
	if analyzer.calls.Load() != 1 {
		t.Errorf("only loadable entries are analyzed, got %d calls", analyzer.calls.Load())
	}
}

func TestBatchProcessor_ProcessFiles_URLs(t *testing.T) {
	entries := []string{"https://example.org/bericht", "https://example.org/fail"}

	results := NewBatchProcessor(&mockAnalyzer{}, mockFetcher{}, 2).ProcessFiles(context.Background(), entries)
	if results[0].Err != nil || results[0].Document.Title != "remote" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("expected fetch error")
	}

	results = NewBatchProcessor(&mockAnalyzer{}, nil, 1).ProcessFiles(context.Background(), entries[:1])
	if results[0].Err == nil {
		t.Error("expected error without a fetcher")
	}
}

func TestBatchProcessor_ProcessFiles_Empty(t *testing.T) {
	results := NewBatchProcessor(&mockAnalyzer{}, nil, 2).ProcessFiles(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFiles_Cancelled(t *testing.T) {
	paths := writeDocs(t, "a.txt", "b.txt", "c.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&mockAnalyzer{}, nil, 1).ProcessFiles(ctx, paths)
	if len(results) != len(paths) {
		t.Fatalf("expected a result per entry, got %d", len(results))
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("result %d is nil", i)
		}
	}
}

func TestReadEntriesFromFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "liste.txt")
	content := strings.Join([]string{
		"# Fälle März",
		"fall1.txt",
		"",
		"  https://example.org/bericht  ",
		"fall1.txt",
		"/abs/fall2.md",
	}, "\n")
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadEntriesFromFile(list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{filepath.Join(dir, "fall1.txt"), "https://example.org/bericht", "/abs/fall2.md"}
	if len(entries) != len(want) {
		t.Fatalf("expected %v, got %v", want, entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], entries[i])
		}
	}
}

func TestReadEntriesFromFile_Missing(t *testing.T) {
	if _, err := ReadEntriesFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing list file")
	}
}

func TestBatchProcessor_ProcessListFile(t *testing.T) {
	paths := writeDocs(t, "x.txt")
	list := filepath.Join(filepath.Dir(paths[0]), "list.txt")
	if err := os.WriteFile(list, []byte("x.txt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := NewBatchProcessor(&mockAnalyzer{}, nil, 1).ProcessListFile(context.Background(), list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Errorf("unexpected results: %+v", results)
	}
}
