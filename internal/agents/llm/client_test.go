package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/refinery/internal/core/config"
)

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("REFINERY_TEST_KEY", "")

	_, err := NewClient(context.Background(), config.LLMConfig{
		Provider:  config.ProviderOpenAI,
		APIKeyEnv: "REFINERY_TEST_KEY",
	})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	t.Setenv("REFINERY_TEST_KEY", "secret")

	_, err := NewClient(context.Background(), config.LLMConfig{
		Provider:  "bard",
		APIKeyEnv: "REFINERY_TEST_KEY",
	})
	require.Error(t, err)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-test",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"fixed"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	t.Setenv("REFINERY_TEST_KEY", "secret")
	client, err := NewClient(context.Background(), config.LLMConfig{
		Provider:  config.ProviderOpenAI,
		Model:     "gpt-test",
		APIKeyEnv: "REFINERY_TEST_KEY",
		BaseURL:   srv.URL + "/v1",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", client.Model())

	answer, err := client.Complete(context.Background(), "fix it")
	require.NoError(t, err)
	assert.Equal(t, "fixed", answer)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "fix it", got.Messages[1].Content)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("secret", srv.URL+"/v1", Params{Model: "gpt-test"})
	_, err := client.Complete(context.Background(), "hi")
	require.ErrorIs(t, err, ErrEmptyResponse)
}
