package logging

import "context"

type contextKey string

const (
	fileKey      contextKey = "file"
	iterationKey contextKey = "iteration"
)

// WithFile adds the sandbox-relative path of the file being processed to the context.
func WithFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, fileKey, path)
}

// WithIteration adds the current 1-based review round to the context.
func WithIteration(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, iterationKey, n)
}

// GetFile retrieves the file path from the context.
// Returns empty string if not present.
func GetFile(ctx context.Context) string {
	if p, ok := ctx.Value(fileKey).(string); ok {
		return p
	}
	return ""
}

// GetIteration retrieves the review round from the context.
// Returns 0 if not present.
func GetIteration(ctx context.Context) int {
	if n, ok := ctx.Value(iterationKey).(int); ok {
		return n
	}
	return 0
}
