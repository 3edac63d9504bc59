// Package llm adapts external completion providers to the single contract
// the triage engine consumes. Provider availability is decided once at
// construction; an unconfigured client short-circuits every call without
// touching the network. Each call is bounded by a fixed timeout; wrap the
// client in WithRetry to retry transient failures, and callers treat any
// failure that survives as "use the rule-based fallback".
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RequestTimeout bounds a single completion call.
const RequestTimeout = 30 * time.Second

// Known providers.
const (
	ProviderAzure     = "azure"
	ProviderAnthropic = "anthropic"
)

// ErrorKind classifies a completion failure.
type ErrorKind string

const (
	// KindConfiguration: provider credentials absent or placeholders.
	KindConfiguration ErrorKind = "configuration"
	// KindTransport: connection failure or timeout.
	KindTransport ErrorKind = "transport"
	// KindAPI: provider answered with a non-2xx status.
	KindAPI ErrorKind = "api"
	// KindMalformed: 2xx answer without extractable message content.
	KindMalformed ErrorKind = "malformed"
)

// Error is a classified completion failure.
type Error struct {
	Kind   ErrorKind
	Status int    // HTTP status when Kind is KindAPI
	Body   string // response detail when Kind is KindAPI
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		return fmt.Sprintf("llm: api error: status %d: %s", e.Status, e.Body)
	case KindConfiguration:
		return "llm: provider not configured"
	default:
		if e.Err != nil {
			return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("llm: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// Operation labels the call for cost attribution (analysis,
	// resolution, escalation).
	Operation string
}

// Client is the completion contract the triage engine consumes.
type Client interface {
	// Complete runs one completion and returns the raw response text.
	// Failures are always *Error values.
	Complete(ctx context.Context, req Request) (string, error)
	// Configured reports whether the provider can be called at all.
	Configured() bool
	// Provider names the backing provider for audit tagging.
	Provider() string
}

// Settings selects and configures the provider. Values come from the
// process environment once at startup; there is no hot reload.
type Settings struct {
	Provider string

	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	AnthropicAPIKey string
	AnthropicModel  string
}

// New builds the provider client from settings. Missing or placeholder
// credentials put the client permanently in the unconfigured state; that
// is logged here once, not per call.
func New(s Settings) Client {
	provider := s.Provider
	if provider == "" {
		provider = ProviderAzure
	}

	switch provider {
	case ProviderAzure:
		if placeholder(s.AzureAPIKey) || placeholder(s.AzureEndpoint) || placeholder(s.AzureDeployment) {
			return newUnconfigured(ProviderAzure)
		}
		return newAzure(s)
	case ProviderAnthropic:
		if placeholder(s.AnthropicAPIKey) {
			return newUnconfigured(ProviderAnthropic)
		}
		return newAnthropic(s)
	default:
		zap.L().Warn("llm: unknown provider, analyses will use the rule-based fallback",
			zap.String("provider", provider))
		return &unconfigured{provider: provider}
	}
}

// placeholder reports whether a credential value is absent or still the
// template value shipped in example configs.
func placeholder(v string) bool {
	return v == "" || strings.HasPrefix(v, "PUT-YOUR-")
}

func newUnconfigured(provider string) Client {
	zap.L().Warn("llm: provider not configured, analyses will use the rule-based fallback",
		zap.String("provider", provider))
	return &unconfigured{provider: provider}
}

// unconfigured always fails with a configuration error and never issues a
// network call.
type unconfigured struct {
	provider string
}

func (u *unconfigured) Complete(context.Context, Request) (string, error) {
	return "", &Error{Kind: KindConfiguration}
}

func (u *unconfigured) Configured() bool { return false }

func (u *unconfigured) Provider() string { return u.provider }
