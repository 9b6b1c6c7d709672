package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/refinery/internal/core/review"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  x = 1\n", want: "x = 1"},
		{name: "python fence", in: "```python\nx = 1\n```", want: "x = 1"},
		{name: "bare fence", in: "```\nx = 1\n```\n", want: "x = 1"},
		{name: "prose around", in: "Here you go:\n```json\n{\"a\":1}\n```\nThanks", want: "{\"a\":1}"},
		{name: "unterminated", in: "```go\nfunc f() {}\n", want: "func f() {}"},
		{name: "fence only", in: "```", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParseReview(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		decision review.Decision
		issues   []string
		wantErr  bool
	}{
		{
			name:     "requires fix",
			in:       `{"issues": ["division by zero"], "decision": "REQUIRES_FIX"}`,
			decision: review.DecisionRequiresFix,
			issues:   []string{"division by zero"},
		},
		{
			name:     "accepted with fence",
			in:       "```json\n{\"issues\": [], \"decision\": \"ACCEPTED\"}\n```",
			decision: review.DecisionAccepted,
			issues:   []string{},
		},
		{
			name:     "lower case and prose",
			in:       "Result: {\"decision\": \" accepted \"} done",
			decision: review.DecisionAccepted,
			issues:   []string{},
		},
		{name: "unknown decision", in: `{"issues": [], "decision": "MAYBE"}`, wantErr: true},
		{name: "missing decision", in: `{"issues": ["x"]}`, wantErr: true},
		{name: "no json", in: "looks fine to me", wantErr: true},
		{name: "broken json", in: `{"issues": [}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReview(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.decision, got.Decision)
			assert.Equal(t, tt.issues, got.Issues)
		})
	}
}
