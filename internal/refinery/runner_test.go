package refinery

import (
	"context"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/refinery/internal/core/sandbox"
	"github.com/colonyops/refinery/internal/core/trail"
	"github.com/colonyops/refinery/internal/core/trail/trailtest"
)

func TestTargetSpec_Validate(t *testing.T) {
	tests := []struct {
		name  string
		spec  TargetSpec
		field string
	}{
		{name: "empty path", spec: TargetSpec{FileExt: ".py", MaxIterations: 1}, field: "target"},
		{name: "zero iterations", spec: TargetSpec{Path: ".", FileExt: ".py"}, field: "max_iterations"},
		{name: "negative iterations", spec: TargetSpec{Path: ".", FileExt: ".py", MaxIterations: -2}, field: "max_iterations"},
		{name: "ext without dot", spec: TargetSpec{Path: ".", FileExt: "py", MaxIterations: 1}, field: "file_ext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}

	assert.NoError(t, TargetSpec{Path: ".", FileExt: ".py", MaxIterations: 1}.Validate())
}

func newRunner(sb *sandbox.Sandbox, rec *trailtest.Recorder) *Runner {
	ctrl := NewController(acceptAfter(0), &copyRewriter{sb: sb}, nil, rec, sb, Options{})
	return NewRunner(ctrl, sb)
}

func TestRunner_Directory(t *testing.T) {
	sb := newSandbox(t, "b.py", "a.py", "c.txt", "a_fixed_1.py", "sub/d.py")
	rec := trailtest.NewRecorder()
	runner := newRunner(sb, rec)

	s := spec(".", 3)
	s.Exclude = []string{"*_fixed_*"}
	report, err := runner.Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, "a.py", report.Files[0].Task.OriginalPath)
	assert.Equal(t, "b.py", report.Files[1].Task.OriginalPath)
	assert.Equal(t, 2, report.Accepted)
	assert.False(t, report.Failed())
	assert.NotEmpty(t, report.RunID)

	records := rec.Records()
	first, last := records[0], records[len(records)-1]
	assert.Equal(t, trail.AgentSystem, first.Agent)
	assert.Equal(t, trail.StatusInfo, first.Status)
	assert.Contains(t, first.Input, "max_iterations=3")
	assert.Equal(t, trail.StatusInfo, last.Status)
	assert.Contains(t, last.Output, "accepted=2")

	for _, r := range records {
		assert.Equal(t, report.RunID, r.RunID)
	}
}

func TestRunner_SingleFileIgnoresExtension(t *testing.T) {
	sb := newSandbox(t, "notes.txt")
	rec := trailtest.NewRecorder()

	report, err := newRunner(sb, rec).Run(context.Background(), spec("notes.txt", 3))
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, OutcomeAccepted, report.Files[0].Outcome)
}

func TestRunner_NothingToDo(t *testing.T) {
	sb := newSandbox(t, "c.txt")
	rec := trailtest.NewRecorder()

	report, err := newRunner(sb, rec).Run(context.Background(), spec(".", 3))
	require.NoError(t, err)
	assert.Empty(t, report.Files)
	assert.False(t, report.Failed())

	records := rec.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "nothing to do", records[1].Output)
	for _, r := range records {
		assert.Equal(t, trail.StatusInfo, r.Status)
	}
}

func TestRunner_MissingTarget(t *testing.T) {
	sb := newSandbox(t)

	report, err := newRunner(sb, trailtest.NewRecorder()).Run(context.Background(), spec("missing", 3))
	require.NoError(t, err)
	assert.Empty(t, report.Files)
}

func TestRunner_InvalidSpec(t *testing.T) {
	sb := newSandbox(t, "a.py")
	rec := trailtest.NewRecorder()

	_, err := newRunner(sb, rec).Run(context.Background(), spec("a.py", 0))
	require.Error(t, err)
	assert.Empty(t, rec.Records(), "nothing is recorded before validation passes")
}

func TestRunner_TraversalTarget(t *testing.T) {
	sb := newSandbox(t, "a.py")
	rec := trailtest.NewRecorder()

	_, err := newRunner(sb, rec).Run(context.Background(), spec("../", 3))
	require.ErrorIs(t, err, sandbox.ErrOutsideSandbox)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, trail.StatusFail, last.Status)
}

func TestRunner_FailuresCounted(t *testing.T) {
	sb := newSandbox(t, "a.py", "b.py")
	rec := trailtest.NewRecorder()
	ctrl := NewController(alwaysFix(), &copyRewriter{sb: sb}, nil, rec, sb, Options{RunID: "fixed"})

	report, err := NewRunner(ctrl, sb).Run(context.Background(), spec(".", 2))
	require.NoError(t, err)
	assert.Equal(t, "fixed", report.RunID)
	assert.Equal(t, 2, report.MaxReached)
	assert.True(t, report.Failed())
}

func TestRunner_CancelledStopsAtFileBoundary(t *testing.T) {
	sb := newSandbox(t, "a.py", "b.py")
	rec := trailtest.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRunner(sb, rec).Run(ctx, spec(".", 3))
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Files)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Contains(t, last.Output, "cancelled")
}

func TestRunner_PanickingReviewerFailsOnlyThatFile(t *testing.T) {
	sb := newSandbox(t, "a.py", "b.py")
	rec := trailtest.NewRecorder()
	ctrl := NewController(panickyReviewer{path: "a.py"}, &copyRewriter{sb: sb}, nil, rec, sb, Options{})

	report, err := NewRunner(ctrl, sb).Run(context.Background(), spec(".", 2))
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, OutcomeError, report.Files[0].Outcome)
	assert.Equal(t, ErrorKindCollaboratorFailure, report.Files[0].Kind)
	assert.Equal(t, OutcomeAccepted, report.Files[1].Outcome)
}
