package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"json fence", "Here you go:\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`, true},
		{"plain fence", "```\n{\"a\":2}\n```", `{"a":2}`, true},
		{"bare object in prose", `I think {"a":{"b":"}"}} is right`, `{"a":{"b":"}"}}`, true},
		{"whole body", `  {"a":3}  `, `{"a":3}`, true},
		{"unclosed fence falls back to object", "```json\n{\"a\":4}", `{"a":4}`, true},
		{"no json", "I cannot decide today.", "", false},
		{"unbalanced", `{"a":1`, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.in)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDecisions(t *testing.T) {
	text := "```json\n" + `{"decisions":{
		"AAPL":{"action":"BUY","quantity":"10","confidence":80,"reasoning":"bullish majority"},
		"MSFT":{"action":"hold","quantity":0,"confidence":"55.5","reasoning":"mixed"}
	}}` + "\n```"
	got, err := ParseDecisions(text)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "buy", string(got["AAPL"].Action))
	assert.Equal(t, 10, got["AAPL"].Quantity)
	assert.Equal(t, 80.0, got["AAPL"].Confidence)
	assert.Equal(t, 55.5, got["MSFT"].Confidence)
}

func TestParseDecisionsRejectsBadPayloads(t *testing.T) {
	for name, text := range map[string]string{
		"no json":           "nothing here",
		"missing decisions": `{"foo":{}}`,
		"fractional qty":    `{"decisions":{"AAPL":{"action":"buy","quantity":1.5,"confidence":50}}}`,
		"non numeric qty":   `{"decisions":{"AAPL":{"action":"buy","quantity":"many","confidence":50}}}`,
		"array instead":     `[1,2,3]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDecisions(text)
			assert.Error(t, err)
		})
	}
}
