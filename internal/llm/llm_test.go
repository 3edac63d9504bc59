package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/triage-cli/pkg/anthropic"
	"github.com/portops/triage-cli/pkg/azureopenai"
)

type fakeAzure struct {
	resp  *azureopenai.ChatResponse
	err   error
	calls int32
	last  azureopenai.ChatRequest
}

func (f *fakeAzure) CreateChatCompletion(_ context.Context, req azureopenai.ChatRequest) (*azureopenai.ChatResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeAnthropic struct {
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestPlaceholder(t *testing.T) {
	assert.True(t, placeholder(""))
	assert.True(t, placeholder("PUT-YOUR-API-KEY-HERE"))
	assert.True(t, placeholder("PUT-YOUR-ENDPOINT-HERE"))
	assert.False(t, placeholder("sk-live-abc123"))
}

func TestUnconfiguredShortCircuits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Settings{
		Provider:        ProviderAzure,
		AzureAPIKey:     "PUT-YOUR-API-KEY-HERE",
		AzureEndpoint:   srv.URL,
		AzureDeployment: "triage-gpt4",
	})

	assert.False(t, c.Configured())
	assert.Equal(t, ProviderAzure, c.Provider())

	_, err := c.Complete(context.Background(), Request{Prompt: "anything", MaxTokens: 10})
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindConfiguration, cerr.Kind)
	assert.Zero(t, atomic.LoadInt32(&hits), "unconfigured client must not touch the network")
}

func TestUnknownProviderUnconfigured(t *testing.T) {
	c := New(Settings{Provider: "mainframe"})
	assert.False(t, c.Configured())

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindConfiguration, cerr.Kind)
}

func TestDefaultProviderIsAzure(t *testing.T) {
	c := New(Settings{
		AzureAPIKey:     "key",
		AzureEndpoint:   "https://example.openai.azure.com",
		AzureDeployment: "triage-gpt4",
	})
	assert.True(t, c.Configured())
	assert.Equal(t, ProviderAzure, c.Provider())
}

func TestAzureCompleteSuccess(t *testing.T) {
	fake := &fakeAzure{resp: &azureopenai.ChatResponse{Content: `{"urgency":"High"}`}}
	c := NewAzureWithClient(fake, "triage-gpt4")

	text, err := c.Complete(context.Background(), Request{
		System:      "analyst",
		Prompt:      "vessel stuck",
		MaxTokens:   800,
		Temperature: 0.3,
		Operation:   "analysis",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"urgency":"High"}`, text)

	require.Len(t, fake.last.Messages, 1)
	assert.Equal(t, "user", fake.last.Messages[0].Role)
	assert.Equal(t, "analyst", fake.last.System)
	assert.Equal(t, 800, fake.last.MaxTokens)
	require.NotNil(t, fake.last.Temperature)
	assert.InDelta(t, 0.3, *fake.last.Temperature, 1e-9)
}

func TestAzureCompleteClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		resp       *azureopenai.ChatResponse
		wantKind   ErrorKind
		wantStatus int
	}{
		{
			name:       "api error carries status",
			err:        &openai.APIError{HTTPStatusCode: 500, Message: "boom"},
			wantKind:   KindAPI,
			wantStatus: 500,
		},
		{
			name:       "request error with status is api",
			err:        &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")},
			wantKind:   KindAPI,
			wantStatus: 502,
		},
		{
			name:     "timeout is transport",
			err:      context.DeadlineExceeded,
			wantKind: KindTransport,
		},
		{
			name:     "network error is transport",
			err:      &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			wantKind: KindTransport,
		},
		{
			name:     "no choices is malformed",
			err:      azureopenai.ErrNoChoices,
			wantKind: KindMalformed,
		},
		{
			name:     "blank content is malformed",
			resp:     &azureopenai.ChatResponse{Content: "   \n"},
			wantKind: KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAzureWithClient(&fakeAzure{resp: tt.resp, err: tt.err}, "triage-gpt4")

			_, err := c.Complete(context.Background(), Request{Prompt: "x", MaxTokens: 10})
			require.Error(t, err)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.wantKind, cerr.Kind)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, cerr.Status)
			}
		})
	}
}

func TestAnthropicComplete(t *testing.T) {
	fake := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "analysis text"}},
	}}
	c := NewAnthropicWithClient(fake, "claude-sonnet-4-5-20250929")

	text, err := c.Complete(context.Background(), Request{Prompt: "x", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "analysis text", text)
	assert.Equal(t, ProviderAnthropic, c.Provider())
	assert.True(t, c.Configured())
}

func TestAnthropicCompleteEmptyIsMalformed(t *testing.T) {
	fake := &fakeAnthropic{resp: &anthropic.MessageResponse{}}
	c := NewAnthropicWithClient(fake, "claude-sonnet-4-5-20250929")

	_, err := c.Complete(context.Background(), Request{Prompt: "x", MaxTokens: 100})
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindMalformed, cerr.Kind)
}

func TestErrorString(t *testing.T) {
	assert.Contains(t, (&Error{Kind: KindAPI, Status: 429, Body: "slow down"}).Error(), "429")
	assert.Contains(t, (&Error{Kind: KindConfiguration}).Error(), "not configured")
	assert.Contains(t, (&Error{Kind: KindTransport, Err: errors.New("refused")}).Error(), "transport")
}
