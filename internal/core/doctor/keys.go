package doctor

import (
	"context"
	"os"

	"github.com/colonyops/refinery/internal/core/config"
)

// lookupEnvFunc reads environment variables. Overridden in tests.
var lookupEnvFunc = os.LookupEnv

// ProviderKeyCheck verifies that the API key for the configured model
// provider is present when an LLM agent is selected.
type ProviderKeyCheck struct {
	cfg *config.Config
}

// NewProviderKeyCheck creates a provider key check.
func NewProviderKeyCheck(cfg *config.Config) *ProviderKeyCheck {
	return &ProviderKeyCheck{cfg: cfg}
}

func (c *ProviderKeyCheck) Name() string {
	return "Model Provider"
}

func (c *ProviderKeyCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if !c.cfg.UsesLLM() {
		result.Items = append(result.Items, CheckItem{
			Label:  "llm",
			Status: StatusPass,
			Detail: "not in use",
		})
		return result
	}

	llm := c.cfg.Agents.LLM
	if v, ok := lookupEnvFunc(llm.APIKeyEnv); !ok || v == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  llm.Provider,
			Status: StatusFail,
			Detail: "$" + llm.APIKeyEnv + " is not set",
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  llm.Provider,
		Status: StatusPass,
		Detail: llm.Model + " via $" + llm.APIKeyEnv,
	})
	return result
}
