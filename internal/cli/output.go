package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/hrintel/internal/analyze"
	"github.com/ppiankov/hrintel/internal/detect"
	"github.com/ppiankov/hrintel/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

// analysisOutput is the JSON written by analyze and batch
type analysisOutput struct {
	Source     string               `json:"source"`
	Title      string               `json:"title,omitempty"`
	Format     model.DocumentFormat `json:"format,omitempty"`
	Model      string               `json:"model,omitempty"`
	TokensUsed int                  `json:"tokensUsed,omitempty"`
	Error      string               `json:"error,omitempty"`
	Result     model.AnalysisResult `json:"result"`
}

func newAnalysisOutput(src string, doc model.Document, r analyze.Report) analysisOutput {
	out := analysisOutput{
		Source:     src,
		Title:      doc.Title,
		Format:     r.Format,
		Model:      r.Model,
		TokensUsed: r.TokensUsed,
		Result:     r.Result,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// writeJSON writes v indented to path, or to w when path is "-"
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = w.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printDetected(w io.Writer, d *model.DetectedDocument) {
	if d == nil {
		fmt.Fprintln(w, "No HURIDOCS fields detected.")
		return
	}

	title := detect.FormatTitle(d.Format)
	if title == "" {
		title = "Unknown format"
	}
	fmt.Fprintf(w, "%s (%s)\n\n", title, d.Format)
	for _, n := range detect.SortedNumbers(d.Fields) {
		label := detect.FieldLabel(n)
		if label == "" {
			label = "?"
		}
		value := d.Fields[n]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "  %-5s %-30s %s\n", n, label, value)
	}
}

func printAnalysis(w io.Writer, src string, r analyze.Report) {
	res := r.Result

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Analysis: %s\n", src)
	fmt.Fprintln(w, rule)
	if r.Format != "" {
		fmt.Fprintf(w, "  Format:     %s\n", r.Format)
	}
	fmt.Fprintf(w, "  Status:     %s\n", res.Status)
	fmt.Fprintf(w, "  Sentiment:  %s\n", res.Sentiment)
	if r.Model != "" {
		fmt.Fprintf(w, "  Model:      %s (%d tokens, %s)\n", r.Model, r.TokensUsed, r.Duration.Round(1e6))
	}
	if r.Err != nil {
		fmt.Fprintf(w, "  Reason:     %v\n", r.Err)
	}

	printList(w, "Involved parties", res.InvolvedParties)
	if len(res.LegalBases) > 0 {
		fmt.Fprintf(w, "\nLegal bases\n")
		for _, lb := range res.LegalBases {
			fmt.Fprintf(w, "  • %s: %s\n", lb.Reference, lb.Description)
		}
	}
	printList(w, "Key facts", res.KeyFacts)
	printList(w, "Human rights implications", res.HumanRightsImplications)
	printList(w, "Connections", res.Connections)
	printList(w, "Timeline", res.Timeline)
	if len(res.Keywords) > 0 {
		fmt.Fprintf(w, "\nKeywords: %s\n", strings.Join(res.Keywords, ", "))
	}
	printList(w, "Suggested actions", res.SuggestedActions)
	if len(res.Contradictions) > 0 {
		fmt.Fprintf(w, "\nContradictions\n")
		for _, c := range res.Contradictions {
			fmt.Fprintf(w, "  • %q vs. %q\n    %s\n", c.Statement1, c.Statement2, c.Explanation)
		}
	}
	fmt.Fprintln(w)
}

func printList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", heading)
	for _, item := range items {
		fmt.Fprintf(w, "  • %s\n", item)
	}
}

// sanitizeFilename turns a title or path into a safe file name stem
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(filepath.Base(s), filepath.Ext(s))
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "-",
	)
	s = replacer.Replace(s)
	if s == "" || s == "." {
		s = "document"
	}
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}
