package analyze

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/ppiankov/hrintel/internal/model"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json|JSON)\\s*(.*?)```")
	braceJSONPattern  = regexp.MustCompile(`(?s)\{.*\}`)
)

var errNoJSON = errors.New("no JSON object in response")

// ParseResponse extracts the analysis JSON from backend text. A fenced json
// block wins; otherwise the span from the first '{' to the last '}' is used.
// The result is normalized and marked ok.
func ParseResponse(text string) (model.AnalysisResult, error) {
	raw := ""
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := braceJSONPattern.FindString(text); m != "" {
		raw = m
	}
	if raw == "" {
		return model.AnalysisResult{}, errNoJSON
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("decode analysis: %w", err)
	}

	result.Normalize()
	result.Status = model.StatusOK
	return result, nil
}

// ValidResponse reports whether text would parse into an analysis. It is
// the cache validator for backend replies.
func ValidResponse(text string) bool {
	_, err := ParseResponse(text)
	return err == nil
}
