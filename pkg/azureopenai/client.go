// Package azureopenai wraps the go-openai SDK for Azure-hosted chat
// completion deployments behind the small surface this application needs.
package azureopenai

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNoChoices is returned when the provider answers 2xx but the body
// carries no completion choices.
var ErrNoChoices = eris.New("azureopenai: response contained no choices")

// Client defines the Azure OpenAI operations used by the triage engine.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is our own request type for CreateChatCompletion.
type ChatRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

// Message represents a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse is our own response type from CreateChatCompletion.
type ChatResponse struct {
	ID           string
	Content      string
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// deploymentPricing holds per-million-token pricing for known deployments.
var deploymentPricing = map[string][2]float64{
	// deployment → {input $/MTok, output $/MTok}
	"gpt-4o":      {2.50, 10.00},
	"gpt-4o-mini": {0.15, 0.60},
}

// EstimateCost computes an estimated cost in USD for a deployment.
// Returns 0 for unknown deployments.
func (u TokenUsage) EstimateCost(deployment string) float64 {
	pricing, ok := deploymentPricing[deployment]
	if !ok {
		return 0
	}
	inCost := (float64(u.PromptTokens) / 1e6) * pricing[0]
	outCost := (float64(u.CompletionTokens) / 1e6) * pricing[1]
	return inCost + outCost
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(deployment, operation string) {
	zap.L().Info("cost attribution",
		zap.String("deployment", deployment),
		zap.String("operation", operation),
		zap.Int("prompt_tokens", u.PromptTokens),
		zap.Int("completion_tokens", u.CompletionTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(deployment)),
	)
}

// Option configures the Azure OpenAI client.
type Option func(*sdkClient)

// WithAPIVersion overrides the api-version query parameter.
func WithAPIVersion(version string) Option {
	return func(c *sdkClient) {
		c.apiVersion = version
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.http = hc
	}
}

// sdkClient implements Client using go-openai in Azure mode.
type sdkClient struct {
	deployment string
	apiVersion string
	http       *http.Client

	client *openai.Client
}

// NewClient creates an Azure OpenAI client for one deployment. The endpoint
// is the resource base URL (https://<resource>.openai.azure.com); requests
// authenticate with the api-key header.
func NewClient(apiKey, endpoint, deployment string, opts ...Option) Client {
	c := &sdkClient{
		deployment: deployment,
		apiVersion: "2024-02-15-preview",
		http:       &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	cfg.APIVersion = c.apiVersion
	cfg.AzureModelMapperFunc = func(string) string { return deployment }
	cfg.HTTPClient = c.http

	c.client = openai.NewClientWithConfig(cfg)
	return c
}

func (c *sdkClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	sdkReq := openai.ChatCompletionRequest{
		Model:     c.deployment,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		sdkReq.Temperature = float32(*req.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, sdkReq)
	if err != nil {
		return nil, eris.Wrap(err, "azureopenai: chat completion")
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	return &ChatResponse{
		ID:           resp.ID,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
