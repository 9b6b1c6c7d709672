package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/refinery/internal/agents/judge"
	"github.com/colonyops/refinery/internal/agents/lint"
	"github.com/colonyops/refinery/internal/agents/llm"
	"github.com/colonyops/refinery/internal/core/config"
	"github.com/colonyops/refinery/internal/core/trail"
	"github.com/colonyops/refinery/internal/refinery"
	"github.com/colonyops/refinery/pkg/executil"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "sandbox")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "calc.py"), []byte("print('ERROR')\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.SandboxRoot = root
	cfg.Trail.Backend = backend
	if backend == config.TrailSQLite {
		cfg.Trail.Path = filepath.Join(dir, "logs", "trail.db")
	} else {
		cfg.Trail.Path = filepath.Join(dir, "logs", "trail.json")
	}
	return &cfg
}

func TestApp_RunEndToEnd(t *testing.T) {
	for _, backend := range []string{config.TrailJSON, config.TrailSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			a := New(cfg, &executil.RealExecutor{})
			t.Cleanup(func() { _ = a.Close() })

			runner, err := a.NewRunner(context.Background(), nil)
			require.NoError(t, err)

			report, err := runner.Run(context.Background(), refinery.TargetSpec{
				Path:          ".",
				FileExt:       cfg.FileExt,
				MaxIterations: cfg.MaxIterations,
				Exclude:       cfg.Exclude,
			})
			require.NoError(t, err)
			require.Len(t, report.Files, 1)
			assert.Equal(t, refinery.OutcomeAccepted, report.Files[0].Outcome)
			assert.Equal(t, 2, report.Files[0].Reviews)
			assert.Equal(t, 1, report.Files[0].Repairs)
			assert.Equal(t, "calc_fixed_1.py", report.Files[0].Task.CurrentPath)

			store, err := a.Trail()
			require.NoError(t, err)
			records, err := store.List(context.Background())
			require.NoError(t, err)
			require.Len(t, records, 6)

			assert.Equal(t, trail.AgentSystem, records[0].Agent)
			assert.Equal(t, trail.AgentReviewer, records[1].Agent)
			assert.Equal(t, trail.AgentRepairer, records[2].Agent)
			assert.Equal(t, trail.AgentReviewer, records[3].Agent)
			assert.Equal(t, "ACCEPTED", records[4].Decision)
			for _, r := range records {
				assert.Equal(t, runner.RunID(), r.RunID)
			}
		})
	}
}

func TestApp_AgentSelection(t *testing.T) {
	cfg := testConfig(t, config.TrailJSON)
	cfg.Agents.Reviewer = config.ReviewerLint
	cfg.Agents.Verifier = config.VerifierCommand

	agents, err := New(cfg, &executil.RecordingExecutor{}).Agents(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &lint.Reviewer{}, agents.Reviewer)
	assert.IsType(t, &judge.Verifier{}, agents.Verifier)
	assert.Equal(t, "heuristic", agents.Rewriter.Name())
}

func TestApp_NoVerifier(t *testing.T) {
	cfg := testConfig(t, config.TrailJSON)

	agents, err := New(cfg, &executil.RecordingExecutor{}).Agents(context.Background())
	require.NoError(t, err)
	assert.Nil(t, agents.Verifier)
}

func TestApp_LLMRequiresKey(t *testing.T) {
	t.Setenv("REFINERY_APP_TEST_KEY", "")

	cfg := testConfig(t, config.TrailJSON)
	cfg.Agents.Reviewer = config.ReviewerLLM
	cfg.Agents.LLM.Provider = config.ProviderOpenAI
	cfg.Agents.LLM.APIKeyEnv = "REFINERY_APP_TEST_KEY"

	_, err := New(cfg, &executil.RecordingExecutor{}).Agents(context.Background())
	require.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestApp_LLMAgents(t *testing.T) {
	t.Setenv("REFINERY_APP_TEST_KEY", "secret")

	cfg := testConfig(t, config.TrailJSON)
	cfg.Agents.Reviewer = config.ReviewerLLM
	cfg.Agents.Rewriter = config.RewriterLLM
	cfg.Agents.LLM.Provider = config.ProviderOpenAI
	cfg.Agents.LLM.Model = "gpt-test"
	cfg.Agents.LLM.APIKeyEnv = "REFINERY_APP_TEST_KEY"

	agents, err := New(cfg, &executil.RecordingExecutor{}).Agents(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &llm.Reviewer{}, agents.Reviewer)
	assert.IsType(t, &llm.Rewriter{}, agents.Rewriter)
}

func TestApp_MissingSandbox(t *testing.T) {
	cfg := testConfig(t, config.TrailJSON)
	cfg.SandboxRoot = filepath.Join(cfg.SandboxRoot, "nope")

	_, err := New(cfg, &executil.RecordingExecutor{}).NewRunner(context.Background(), nil)
	require.Error(t, err)
}

func TestOpenTrail_RecoversCorruptDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.db")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a database ", 512)), 0o644))

	store, closer, err := OpenTrail(config.TrailConfig{Backend: config.TrailSQLite, Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	rec := trail.New(trail.AgentSystem, trail.ActionSystem, trail.StatusInfo)
	require.NoError(t, store.Append(context.Background(), rec))

	matches, err := filepath.Glob(path + ".corrupt.*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestOpenTrail_UnknownBackend(t *testing.T) {
	_, _, err := OpenTrail(config.TrailConfig{Backend: "redis"})
	require.Error(t, err)
}

func TestApp_RunChecks(t *testing.T) {
	cfg := testConfig(t, config.TrailJSON)

	rep := New(cfg, &executil.RecordingExecutor{}).RunChecks(context.Background(), "")
	require.Len(t, rep.Checks, 4)
	assert.Equal(t, "Configuration", rep.Checks[0].Name)
	assert.Equal(t, "Sandbox", rep.Checks[1].Name)
}
