package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyAnalysis_SerializesEmptyArrays(t *testing.T) {
	r := EmptyAnalysis()
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, SentimentNeutral, r.Sentiment)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	for _, key := range []string{
		"involvedParties", "legalBases", "keyFacts", "humanRightsImplications",
		"connections", "timeline", "keywords", "suggestedActions", "contradictions",
	} {
		assert.Equal(t, []any{}, generic[key], key)
	}
}

func TestNormalize_KeepsValues(t *testing.T) {
	r := AnalysisResult{Keywords: []string{"Haft"}, Sentiment: SentimentPositive, Status: StatusOK}
	r.Normalize()
	assert.Equal(t, []string{"Haft"}, r.Keywords)
	assert.Equal(t, SentimentPositive, r.Sentiment)
	assert.Equal(t, StatusOK, r.Status)
	assert.NotNil(t, r.Contradictions)
}

func TestSentimentValid(t *testing.T) {
	assert.True(t, SentimentNegative.Valid())
	assert.False(t, Sentiment("").Valid())
	assert.False(t, Sentiment("Negative").Valid())
}

func TestDocumentFormatIsKnown(t *testing.T) {
	assert.True(t, FormatEvent.IsKnown())
	assert.False(t, FormatUnknown.IsKnown())
	assert.False(t, DocumentFormat("").IsKnown())
}
