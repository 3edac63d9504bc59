package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/portops/triage-cli/pkg/azureopenai"
)

// azureClient adapts the Azure OpenAI chat client to the Client contract.
type azureClient struct {
	client     azureopenai.Client
	deployment string
}

func newAzure(s Settings) Client {
	opts := []azureopenai.Option{}
	if s.AzureAPIVersion != "" {
		opts = append(opts, azureopenai.WithAPIVersion(s.AzureAPIVersion))
	}
	return &azureClient{
		client:     azureopenai.NewClient(s.AzureAPIKey, s.AzureEndpoint, s.AzureDeployment, opts...),
		deployment: s.AzureDeployment,
	}
}

// NewAzureWithClient wires an existing Azure OpenAI client. Used by tests.
func NewAzureWithClient(client azureopenai.Client, deployment string) Client {
	return &azureClient{client: client, deployment: deployment}
}

func (c *azureClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	temp := req.Temperature
	resp, err := c.client.CreateChatCompletion(ctx, azureopenai.ChatRequest{
		System:      req.System,
		Messages:    []azureopenai.Message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", classifyAzureError(err)
	}

	if strings.TrimSpace(resp.Content) == "" {
		return "", &Error{Kind: KindMalformed}
	}

	resp.Usage.LogCost(c.deployment, req.Operation)
	return resp.Content, nil
}

func (c *azureClient) Configured() bool { return true }

func (c *azureClient) Provider() string { return ProviderAzure }

// classifyAzureError maps go-openai failures onto the error taxonomy.
func classifyAzureError(err error) *Error {
	if errors.Is(err, azureopenai.ErrNoChoices) {
		return &Error{Kind: KindMalformed, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindAPI, Status: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &Error{Kind: KindAPI, Status: reqErr.HTTPStatusCode, Err: err}
	}

	// A 2xx body the SDK could not decode is a malformed response, not a
	// transport failure.
	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindMalformed, Err: err}
	}

	return &Error{Kind: KindTransport, Err: err}
}
