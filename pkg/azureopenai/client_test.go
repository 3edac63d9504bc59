package azureopenai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatJSON(content string) string {
	body := map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 25, "completion_tokens": 10, "total_tokens": 35},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func TestCreateChatCompletion(t *testing.T) {
	var gotPath, gotAPIKey, gotVersion string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("api-key")
		gotVersion = r.URL.Query().Get("api-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatJSON(`{"incident_type":"Container Management"}`)))
	}))
	defer srv.Close()

	temp := 0.3
	c := NewClient("test-key", srv.URL, "triage-gpt4", WithAPIVersion("2024-02-15-preview"))

	resp, err := c.CreateChatCompletion(context.Background(), ChatRequest{
		System:      "You are an analyst.",
		Messages:    []Message{{Role: "user", Content: "Container stuck"}},
		MaxTokens:   800,
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.True(t, strings.Contains(gotPath, "/openai/deployments/triage-gpt4/chat/completions"), "path %q", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "2024-02-15-preview", gotVersion)

	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.Equal(t, 800, gotBody.MaxTokens)
	assert.InDelta(t, 0.3, gotBody.Temperature, 1e-6)

	assert.Equal(t, `{"incident_type":"Container Management"}`, resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 25, resp.Usage.PromptTokens)
	assert.Equal(t, 10, resp.Usage.CompletionTokens)
}

func TestCreateChatCompletionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"requests","code":"429"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "triage-gpt4")

	_, err := c.CreateChatCompletion(context.Background(), ChatRequest{
		Messages:  []Message{{Role: "user", Content: "hello"}},
		MaxTokens: 10,
	})
	require.Error(t, err)

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr), "expected *openai.APIError through the wrap chain")
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
}

func TestCreateChatCompletionNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "triage-gpt4")

	_, err := c.CreateChatCompletion(context.Background(), ChatRequest{
		Messages:  []Message{{Role: "user", Content: "hello"}},
		MaxTokens: 10,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoChoices))
}

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 100_000}

	assert.InDelta(t, 2.50+1.00, usage.EstimateCost("gpt-4o"), 1e-9)
	assert.Zero(t, usage.EstimateCost("custom-deployment"))
}
