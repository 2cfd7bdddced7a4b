package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/hrintel/internal/model"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		wantErr  bool
	}{
		{name: "fenced", text: "```json\n{\"keywords\":[\"a\"]}\n```", keywords: []string{"a"}},
		{name: "fenced uppercase tag", text: "```JSON\n{\"keywords\":[\"a\"]}```", keywords: []string{"a"}},
		{name: "fenced wins over bare", text: "{\"keywords\":[\"bare\"]}\n```json\n{\"keywords\":[\"fenced\"]}\n```", keywords: []string{"fenced"}},
		{name: "bare object with prose", text: "Ergebnis: {\"keywords\":[\"b\"]} Danke.", keywords: []string{"b"}},
		{name: "bare nested braces", text: `{"legalBases":[{"reference":"Art. 3 GG","description":"x"}],"keywords":["c"]}`, keywords: []string{"c"}},
		{name: "no json", text: "nichts", wantErr: true},
		{name: "empty", text: "", wantErr: true},
		{name: "two objects", text: `{"keywords":["a"]} und {"keywords":["b"]}`, wantErr: true},
		{name: "truncated", text: "```json\n{\"keywords\": [\"a\"\n```", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.keywords, got.Keywords)
			assert.Equal(t, model.StatusOK, got.Status)
		})
	}
}

func TestParseResponse_Normalizes(t *testing.T) {
	got, err := ParseResponse(`{"sentiment":"furious","keywords":null}`)
	require.NoError(t, err)
	assert.Equal(t, model.SentimentNeutral, got.Sentiment)
	assert.Equal(t, []string{}, got.Keywords)
	assert.Equal(t, []model.LegalBasis{}, got.LegalBases)
}

func TestTruncateRunes(t *testing.T) {
	s, cut := truncateRunes("äöü", 2)
	assert.Equal(t, "äö", s)
	assert.True(t, cut)

	s, cut = truncateRunes("äöü", 3)
	assert.Equal(t, "äöü", s)
	assert.False(t, cut)

	s, cut = truncateRunes("abc", 0)
	assert.Equal(t, "abc", s)
	assert.False(t, cut)
}
