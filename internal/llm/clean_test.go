package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expected  string
		wantFound bool
	}{
		{
			name:      "plain object",
			raw:       `{"sentence":"Je parle","translation":"I speak","explanation":""}`,
			expected:  `{"sentence":"Je parle","translation":"I speak","explanation":""}`,
			wantFound: true,
		},
		{
			name:      "surrounding whitespace",
			raw:       "\n\n  {\"sentence\":\"ok\"}  \n",
			expected:  `{"sentence":"ok"}`,
			wantFound: true,
		},
		{
			name:      "json code fence",
			raw:       "```json\n{\"sentence\":\"ok\"}\n```",
			expected:  `{"sentence":"ok"}`,
			wantFound: true,
		},
		{
			name:      "bare code fence",
			raw:       "```\n{\"sentence\":\"ok\"}\n```",
			expected:  `{"sentence":"ok"}`,
			wantFound: true,
		},
		{
			name:      "prose before and after the object",
			raw:       "Here is the sentence:\n{\"sentence\":\"ok\"}\nHope that helps!",
			expected:  `{"sentence":"ok"}`,
			wantFound: true,
		},
		{
			name:      "first top-level object wins",
			raw:       `{"a":1} {"b":2}`,
			expected:  `{"a":1}`,
			wantFound: true,
		},
		{
			name:      "nested objects stay intact",
			raw:       `{"a":{"b":"}"},"c":2}`,
			expected:  `{"a":{"b":"}"},"c":2}`,
			wantFound: true,
		},
		{
			name:      "braces inside strings are ignored",
			raw:       `{"sentence":"il a dit \"{\" hier"}`,
			expected:  `{"sentence":"il a dit \"{\" hier"}`,
			wantFound: true,
		},
		{
			name:      "no object at all",
			raw:       "I cannot do that.",
			expected:  "I cannot do that.",
			wantFound: false,
		},
		{
			name:      "unterminated object",
			raw:       `{"sentence":"ok"`,
			expected:  `{"sentence":"ok"`,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := CleanContent(tt.raw)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.expected, got)
		})
	}
}
