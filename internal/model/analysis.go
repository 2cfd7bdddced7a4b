package model

// Sentiment is the overall tone the model assigned to a document
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the three accepted values
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	default:
		return false
	}
}

// AnalysisStatus tells a genuine result apart from the degraded default
type AnalysisStatus string

const (
	StatusOK       AnalysisStatus = "ok"
	StatusDegraded AnalysisStatus = "degraded" // Upstream or parse failure, all fields empty
)

// LegalBasis is a legal norm the model connected to the document
type LegalBasis struct {
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

// Contradiction is a pair of statements in the document that conflict
type Contradiction struct {
	Statement1  string `json:"statement1"`
	Statement2  string `json:"statement2"`
	Explanation string `json:"explanation"`
}

// AnalysisResult is the structured analysis of one document.
// Every slice is non-nil once the result has passed through Normalize.
type AnalysisResult struct {
	InvolvedParties         []string        `json:"involvedParties"`
	LegalBases              []LegalBasis    `json:"legalBases"`
	KeyFacts                []string        `json:"keyFacts"`
	HumanRightsImplications []string        `json:"humanRightsImplications"`
	Connections             []string        `json:"connections"`
	Timeline                []string        `json:"timeline"`
	Keywords                []string        `json:"keywords"`
	Sentiment               Sentiment       `json:"sentiment"`
	SuggestedActions        []string        `json:"suggestedActions"`
	Contradictions          []Contradiction `json:"contradictions"`
	Status                  AnalysisStatus  `json:"status"`
}

// EmptyAnalysis returns the degraded default: every list empty, neutral sentiment
func EmptyAnalysis() AnalysisResult {
	r := AnalysisResult{Status: StatusDegraded}
	r.Normalize()
	return r
}

// Normalize replaces nil slices with empty ones and coerces an unknown
// sentiment to neutral. Status is left untouched.
func (r *AnalysisResult) Normalize() {
	r.InvolvedParties = nonNil(r.InvolvedParties)
	r.KeyFacts = nonNil(r.KeyFacts)
	r.HumanRightsImplications = nonNil(r.HumanRightsImplications)
	r.Connections = nonNil(r.Connections)
	r.Timeline = nonNil(r.Timeline)
	r.Keywords = nonNil(r.Keywords)
	r.SuggestedActions = nonNil(r.SuggestedActions)
	if r.LegalBases == nil {
		r.LegalBases = []LegalBasis{}
	}
	if r.Contradictions == nil {
		r.Contradictions = []Contradiction{}
	}
	if !r.Sentiment.Valid() {
		r.Sentiment = SentimentNeutral
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
