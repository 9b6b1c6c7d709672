package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SandboxRoot = t.TempDir()
	cfg.applyDefaults()
	return &cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{name: "zero iterations", mutate: func(c *Config) { c.MaxIterations = 0 }, field: "max_iterations"},
		{name: "ext without dot", mutate: func(c *Config) { c.FileExt = "py" }, field: "file_ext"},
		{name: "bare dot ext", mutate: func(c *Config) { c.FileExt = "." }, field: "file_ext"},
		{name: "bad exclude", mutate: func(c *Config) { c.Exclude = []string{"[unterminated"} }, field: "exclude[0]"},
		{name: "unknown reviewer", mutate: func(c *Config) { c.Agents.Reviewer = "oracle" }, field: "agents.reviewer"},
		{name: "unknown rewriter", mutate: func(c *Config) { c.Agents.Rewriter = "oracle" }, field: "agents.rewriter"},
		{name: "unknown verifier", mutate: func(c *Config) { c.Agents.Verifier = "oracle" }, field: "agents.verifier"},
		{name: "score out of range", mutate: func(c *Config) { c.Agents.Lint.MinScore = 11 }, field: "agents.lint.min_score"},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.Agents.Reviewer = ReviewerLLM
				c.Agents.LLM.Provider = "acme"
			},
			field: "agents.llm.provider",
		},
		{name: "unknown backend", mutate: func(c *Config) { c.Trail.Backend = "csv" }, field: "trail.backend"},
		{name: "unknown theme", mutate: func(c *Config) { c.Theme = "neon" }, field: "theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}
}

func TestValidate_UnknownProviderIgnoredWithoutLLM(t *testing.T) {
	cfg := validConfig(t)
	cfg.Agents.LLM.Provider = "acme"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.MaxIterations = 0
	cfg.FileExt = "txt"

	err := cfg.Validate()

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
}

func TestFileExt(t *testing.T) {
	assert.NoError(t, FileExt(".py"))
	assert.NoError(t, FileExt(".tar.gz"))
	assert.Error(t, FileExt(""))
	assert.Error(t, FileExt("py"))
	assert.Error(t, FileExt("./py"))
}

func TestValidateDeep_SandboxRoot(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.SandboxRoot = filepath.Join(t.TempDir(), "nope")

		err := cfg.ValidateDeep("")

		var fieldErrs criterio.FieldErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Equal(t, "sandbox_root", fieldErrs[0].Field)
	})

	t.Run("file", func(t *testing.T) {
		cfg := validConfig(t)
		file := filepath.Join(t.TempDir(), "f.txt")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		cfg.SandboxRoot = file

		err := cfg.ValidateDeep("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("ok", func(t *testing.T) {
		cfg := validConfig(t)
		assert.NoError(t, cfg.ValidateDeep(""))
	})
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)
	dir := t.TempDir()

	err := cfg.ValidateDeep(dir)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "config_file", fieldErrs[0].Field)
}

func TestValidateDeep_Templates(t *testing.T) {
	cfg := validConfig(t)
	cfg.Agents.Reviewer = ReviewerLint
	cfg.Agents.Lint.Command = "pylint {{ .Nope }}"
	cfg.Agents.Verifier = VerifierCommand
	cfg.Agents.Verify.Command = "pytest {{ .Dir"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "agents.lint.command", fieldErrs[0].Field)
	assert.Equal(t, "agents.verify.command", fieldErrs[1].Field)
}

func TestValidateDeep_TemplatesSkippedWhenUnused(t *testing.T) {
	cfg := validConfig(t)
	cfg.Agents.Lint.Command = "pylint {{ .Nope }}"
	assert.NoError(t, cfg.ValidateDeep(""))
}
