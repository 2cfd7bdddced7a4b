package model

// DocumentFormat is the HURIDOCS record type a document was classified as
type DocumentFormat string

const (
	FormatEvent         DocumentFormat = "event"         // Ereignisformat (fields 1xx)
	FormatAct           DocumentFormat = "act"           // Handlungsformat (fields 21xx)
	FormatParticipation DocumentFormat = "participation" // Beteiligungsformat (fields 24xx)
	FormatUnknown       DocumentFormat = "unknown"       // Fields found, but no format reached the threshold
)

// IsKnown reports whether the format is one of the HURIDOCS record types
func (f DocumentFormat) IsKnown() bool {
	switch f {
	case FormatEvent, FormatAct, FormatParticipation:
		return true
	default:
		return false
	}
}

// DetectedDocument is the output of format detection for a single input text.
// Fields is keyed by HURIDOCS field number ("101", "2401", ...).
type DetectedDocument struct {
	Format     DocumentFormat    `json:"format"`
	Fields     map[string]string `json:"fields"`
	RawContent string            `json:"rawContent"`
}

// Document is plain document input without a detected format
type Document struct {
	Title   string `json:"title,omitempty"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
}
