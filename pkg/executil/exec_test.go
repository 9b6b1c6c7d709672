package executil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealExecutor_RunDir(t *testing.T) {
	e := &RealExecutor{}
	ctx := context.Background()

	t.Run("captures output", func(t *testing.T) {
		out, err := e.RunDir(ctx, "", "echo", "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(out))
	})

	t.Run("runs in directory", func(t *testing.T) {
		dir := t.TempDir()
		out, err := e.RunDir(ctx, dir, "pwd")
		require.NoError(t, err)
		assert.Contains(t, string(out), dir)
	})

	t.Run("command not found", func(t *testing.T) {
		_, err := e.RunDir(ctx, "", "nonexistent-command-12345")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exec nonexistent-command-12345")

		_, ok := ExitCode(err)
		assert.False(t, ok)
	})

	t.Run("non-zero exit keeps output", func(t *testing.T) {
		out, err := RunShell(ctx, e, "", "echo failing; exit 3")
		require.Error(t, err)
		assert.Equal(t, "failing\n", string(out))

		code, ok := ExitCode(err)
		assert.True(t, ok)
		assert.Equal(t, 3, code)
	})
}

func TestExitCode(t *testing.T) {
	code, ok := ExitCode(nil)
	assert.True(t, ok)
	assert.Equal(t, 0, code)

	code, ok = ExitCode(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, -1, code)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", Tail([]byte("abc"), 5))
	assert.Equal(t, "cde", Tail([]byte("abcde"), 3))
}

func TestRecordingExecutor(t *testing.T) {
	e := &RecordingExecutor{Output: []byte("ok")}

	out, err := e.RunDir(context.Background(), "/tmp", "sh", "-c", "true")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	require.Equal(t, 1, e.Calls())
	assert.Equal(t, RecordedCommand{Dir: "/tmp", Cmd: "sh", Args: []string{"-c", "true"}}, e.Commands[0])
}
