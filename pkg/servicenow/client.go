// Package servicenow provides a minimal client for the ServiceNow Table
// API incident surface.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the ServiceNow operations used for incident ticketing.
type Client interface {
	// CreateIncident inserts a row into the incident table and returns
	// the created record.
	CreateIncident(ctx context.Context, req IncidentRequest) (*IncidentRecord, error)
}

// IncidentRequest is the create payload for the incident table. Urgency
// and impact use the ServiceNow 1-3 scale as strings.
type IncidentRequest struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Urgency          string `json:"urgency"`
	Impact           string `json:"impact"`
	Category         string `json:"category,omitempty"`
	Subcategory      string `json:"subcategory,omitempty"`
	CallerID         string `json:"caller_id,omitempty"`
	AssignmentGroup  string `json:"assignment_group,omitempty"`
}

// IncidentRecord is the created incident row.
type IncidentRecord struct {
	SysID  string `json:"sys_id"`
	Number string `json:"number"`
}

type incidentEnvelope struct {
	Result IncidentRecord `json:"result"`
}

// Option configures the ServiceNow client.
type Option func(*httpClient)

// WithBaseURL overrides the instance-derived base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient creates a ServiceNow client for the named instance,
// authenticating with basic auth.
func NewClient(instance, username, password string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  fmt.Sprintf("https://%s.service-now.com", instance),
		username: username,
		password: password,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo sends the payload with exponential backoff retries on transient
// failures (429, 500, 502, 503). The request is rebuilt each attempt so
// the body can be resent.
func (c *httpClient) retryDo(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "servicenow: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.SetBasicAuth(c.username, c.password)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "servicenow: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("servicenow: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) CreateIncident(ctx context.Context, req IncidentRequest) (*IncidentRecord, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "servicenow: marshal incident")
	}

	body, statusCode, err := c.retryDo(ctx, http.MethodPost, c.baseURL+"/api/now/table/incident", payload)
	if err != nil {
		return nil, eris.Wrap(err, "servicenow: create incident")
	}

	if statusCode != http.StatusCreated {
		return nil, eris.Errorf("servicenow: unexpected status %d: %s", statusCode, string(body))
	}

	var envelope incidentEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrap(err, "servicenow: unmarshal response")
	}

	return &envelope.Result, nil
}
