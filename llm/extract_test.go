package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "object with surrounding prose",
			text: "Here is my answer:\n{\"a\": 1}\nHope that helps!",
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "fenced code block",
			text: "```json\n{\"scores\": [{\"id\": \"1\", \"points\": 10}]}\n```",
			want: `{"scores": [{"id": "1", "points": 10}]}`,
			ok:   true,
		},
		{
			name: "nested objects",
			text: `prefix {"outer": {"inner": 2}} suffix`,
			want: `{"outer": {"inner": 2}}`,
			ok:   true,
		},
		{
			name: "braces inside strings",
			text: `{"text": "use {curly} braces and a \" quote"}`,
			want: `{"text": "use {curly} braces and a \" quote"}`,
			ok:   true,
		},
		{
			name: "no json at all",
			text: "I cannot answer that in the requested format.",
			ok:   false,
		},
		{
			name: "unbalanced object",
			text: `{"a": 1`,
			ok:   false,
		},
		{
			name: "balanced span that is not valid json",
			text: `{not json}`,
			ok:   false,
		},
		{
			name: "empty input",
			text: "   ",
			ok:   false,
		},
		{
			name: "top-level array is not an object",
			text: `[1, 2, 3]`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := ExtractJSON(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.JSONEq(t, tt.want, string(raw))
			}
		})
	}
}

func TestExtractInto(t *testing.T) {
	type out struct {
		Summary string `json:"summary"`
	}

	t.Run("decodes recovered object", func(t *testing.T) {
		var v out
		require.True(t, ExtractInto(`noise {"summary": "ok"} noise`, &v))
		assert.Equal(t, "ok", v.Summary)
	})

	t.Run("false when nothing recoverable", func(t *testing.T) {
		var v out
		assert.False(t, ExtractInto("no structure here", &v))
	})

	t.Run("false when shape does not decode", func(t *testing.T) {
		var v out
		assert.False(t, ExtractInto(`{"summary": {"not": "a string"}}`, &v))
	})
}
