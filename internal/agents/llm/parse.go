package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/colonyops/refinery/internal/core/review"
)

// ErrMalformedResponse is returned when a review answer is not the
// expected JSON object.
var ErrMalformedResponse = errors.New("malformed review response")

// StripFences returns the body of the first fenced code block in s, or s
// trimmed when it has none. The language tag after the opening fence is
// dropped.
func StripFences(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return strings.TrimSpace(s)
	}

	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ParseReview decodes a {"issues": [...], "decision": "..."} answer,
// tolerating surrounding prose and code fences.
func ParseReview(s string) (review.Outcome, error) {
	body := StripFences(s)

	open, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}')
	if open < 0 || end < open {
		return review.Outcome{}, fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	}

	var raw struct {
		Issues   []string `json:"issues"`
		Decision string   `json:"decision"`
	}
	if err := json.Unmarshal([]byte(body[open:end+1]), &raw); err != nil {
		return review.Outcome{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	decision := review.Decision(strings.ToUpper(strings.TrimSpace(raw.Decision)))
	if !decision.IsValid() {
		return review.Outcome{}, fmt.Errorf("%w: decision %q", ErrMalformedResponse, raw.Decision)
	}

	issues := raw.Issues
	if issues == nil {
		issues = []string{}
	}
	return review.Outcome{Decision: decision, Issues: issues}, nil
}
