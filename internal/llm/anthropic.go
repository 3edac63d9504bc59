package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/portops/triage-cli/pkg/anthropic"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// anthropicClient adapts the Anthropic message client to the Client contract.
type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropic(s Settings) Client {
	model := s.AnthropicModel
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicClient{
		client: anthropic.NewClient(s.AnthropicAPIKey),
		model:  model,
	}
}

// NewAnthropicWithClient wires an existing Anthropic client. Used by tests.
func NewAnthropicWithClient(client anthropic.Client, model string) Client {
	return &anthropicClient{client: client, model: model}
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	temp := req.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   int64(req.MaxTokens),
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &Error{Kind: KindMalformed}
	}

	resp.Usage.LogCost(c.model, req.Operation)
	return text, nil
}

func (c *anthropicClient) Configured() bool { return true }

func (c *anthropicClient) Provider() string { return ProviderAnthropic }

// classifyAnthropicError maps SDK failures onto the error taxonomy.
func classifyAnthropicError(err error) *Error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindAPI, Status: apiErr.StatusCode, Body: apiErr.Error(), Err: err}
	}

	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindMalformed, Err: err}
	}

	return &Error{Kind: KindTransport, Err: err}
}
