// Package detect classifies document text into HURIDOCS record formats
// and extracts the numbered fields it carries.
package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/hrintel/internal/model"
)

// minFieldMatches is the number of catalog fields a document must carry
// before it is classified as that format
const minFieldMatches = 3

var (
	// | 2401 | Beteiligung-Datensatznummer | B-17 |
	pipeRowPattern = regexp.MustCompile(`^\|\s*(\d{3,4})\s*\|(.*)$`)

	// 2401 Beteiligung-Datensatznummer: B-17
	labelLinePattern = regexp.MustCompile(`^(\d{3,4})\s+[^:|]*:\s*(.*)$`)
)

// Detector classifies documents. It holds no per-call state and is safe
// for concurrent use.
type Detector struct {
	log logrus.FieldLogger
}

// NewDetector creates a detector. A nil logger uses the logrus standard logger.
func NewDetector(log logrus.FieldLogger) *Detector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{log: log}
}

// Detect inspects content and returns the detected document, or nil when
// neither a format header nor a single field row was found.
func (d *Detector) Detect(content string) *model.DetectedDocument {
	fields := ParseFields(content)

	// 1. Literal header markers
	if spec := matchHeader(content); spec != nil {
		fillLabelLines(content, spec, fields)
		for _, f := range spec.fields {
			if _, ok := fields[f.Number]; !ok {
				fields[f.Number] = ""
			}
		}
		d.log.WithFields(logrus.Fields{
			"format": spec.format,
			"fields": len(fields),
		}).Debug("format detected by header")

		return &model.DetectedDocument{
			Format:     spec.format,
			Fields:     fields,
			RawContent: content,
		}
	}

	// 2. Pipe table rows only
	if len(fields) == 0 {
		return nil
	}

	// 3. Score against the catalog
	format := d.selectFormat(Scores(fields))

	return &model.DetectedDocument{
		Format:     format,
		Fields:     fields,
		RawContent: content,
	}
}

// ParseFields collects every pipe-table row of the form
// "| <3-4 digit number> | ... | <value>" into a map keyed by field number.
// The first occurrence of a number wins; other lines are ignored.
func ParseFields(content string) map[string]string {
	fields := make(map[string]string)

	for _, line := range strings.Split(content, "\n") {
		m := pipeRowPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		cells := strings.Split(m[2], "|")
		// Drop the empty cell produced by a closing pipe
		if len(cells) > 1 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		value := strings.TrimSpace(cells[len(cells)-1])

		if _, seen := fields[m[1]]; !seen {
			fields[m[1]] = value
		}
	}

	return fields
}

// Scores counts, per format, how many of its catalog fields appear in fields
func Scores(fields map[string]string) map[model.DocumentFormat]int {
	scores := make(map[model.DocumentFormat]int, len(catalog))
	for _, spec := range catalog {
		count := 0
		for _, f := range spec.fields {
			if _, ok := fields[f.Number]; ok {
				count++
			}
		}
		scores[spec.format] = count
	}
	return scores
}

// selectFormat picks the highest score at or above the threshold.
// Ties go to the format declared first in the catalog and are logged.
func (d *Detector) selectFormat(scores map[model.DocumentFormat]int) model.DocumentFormat {
	best := model.FormatUnknown
	bestScore := 0
	var tied []string

	for _, spec := range catalog {
		score := scores[spec.format]
		if score < minFieldMatches {
			continue
		}
		switch {
		case score > bestScore:
			best = spec.format
			bestScore = score
			tied = []string{string(spec.format)}
		case score == bestScore:
			tied = append(tied, string(spec.format))
		}
	}

	if len(tied) > 1 {
		d.log.WithFields(logrus.Fields{
			"candidates": strings.Join(tied, ","),
			"score":      bestScore,
			"selected":   best,
		}).Warn("ambiguous format match, using catalog priority")
	}

	return best
}

// matchHeader returns the first catalog format whose title and markers all
// occur in content
func matchHeader(content string) *formatSpec {
	for i := range catalog {
		spec := &catalog[i]
		if !strings.Contains(content, spec.title) {
			continue
		}
		matched := true
		for _, marker := range spec.markers {
			if !strings.Contains(content, marker) {
				matched = false
				break
			}
		}
		if matched {
			return spec
		}
	}
	return nil
}

// fillLabelLines adds values from "NNNN Label: value" lines for catalog
// fields of spec that no pipe row supplied
func fillLabelLines(content string, spec *formatSpec, fields map[string]string) {
	wanted := make(map[string]bool, len(spec.fields))
	for _, f := range spec.fields {
		if fields[f.Number] == "" {
			wanted[f.Number] = true
		}
	}
	if len(wanted) == 0 {
		return
	}

	for _, line := range strings.Split(content, "\n") {
		m := labelLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || !wanted[m[1]] {
			continue
		}
		if value := strings.TrimSpace(m[2]); value != "" {
			fields[m[1]] = value
			delete(wanted, m[1])
		}
	}
}

// SortedNumbers returns the field numbers of fields in numeric order
func SortedNumbers(fields map[string]string) []string {
	numbers := make([]string, 0, len(fields))
	for n := range fields {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool {
		if len(numbers[i]) != len(numbers[j]) {
			return len(numbers[i]) < len(numbers[j])
		}
		return numbers[i] < numbers[j]
	})
	return numbers
}
