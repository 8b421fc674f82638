package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object",
			in:   `{"approved":true}`,
			want: `{"approved":true}`,
		},
		{
			name: "markdown fenced",
			in:   "```json\n{\"approved\":false}\n```",
			want: `{"approved":false}`,
		},
		{
			name: "fence without language",
			in:   "```\n{\"approved\":true}\n```",
			want: `{"approved":true}`,
		},
		{
			name: "prose around object",
			in:   "Here is the verdict:\n{\"approved\":true}\nLet me know if you need more.",
			want: `{"approved":true}`,
		},
		{
			name: "trailing comma removed",
			in:   `{"approved":true,"notes":"fine",}`,
			want: `{"approved":true,"notes":"fine"}`,
		},
		{
			name: "trailing comma in array",
			in:   `{"tags":["aml","banking",]}`,
			want: `{"tags":["aml","banking"]}`,
		},
		{
			name: "no json at all",
			in:   "I cannot help with that.",
			want: "",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON(tt.in)
			assert.Equal(t, tt.want, got)

			if tt.want != "" {
				var parsed map[string]any
				require.NoError(t, json.Unmarshal([]byte(got), &parsed), "extracted JSON must parse")
			}
		})
	}
}

func TestExtractJSON_NestedBraces(t *testing.T) {
	in := "```json\n{\"headline\":\"X\",\"body\":\"uses {braces} inside\",\"tags\":[]}\n```"
	got := extractJSON(in)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Equal(t, "uses {braces} inside", parsed["body"])
}
