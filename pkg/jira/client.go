// Package jira provides a minimal client for the Jira REST API v2
// issue-creation surface.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Jira operations used for incident ticketing.
type Client interface {
	// CreateIssue creates an issue and returns its key.
	CreateIssue(ctx context.Context, req CreateIssueRequest) (*CreatedIssue, error)
}

// CreateIssueRequest is the create-issue payload.
type CreateIssueRequest struct {
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the writable fields of a new issue.
type IssueFields struct {
	Project     ProjectRef   `json:"project"`
	Summary     string       `json:"summary"`
	Description string       `json:"description"`
	IssueType   IssueTypeRef `json:"issuetype"`
	Priority    *PriorityRef `json:"priority,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
}

// ProjectRef identifies the target project by key.
type ProjectRef struct {
	Key string `json:"key"`
}

// IssueTypeRef identifies the issue type by name.
type IssueTypeRef struct {
	Name string `json:"name"`
}

// PriorityRef identifies a priority by Jira id.
type PriorityRef struct {
	ID string `json:"id"`
}

// CreatedIssue is the create-issue response.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// BrowseURL returns the human-facing issue URL under base.
func (i *CreatedIssue) BrowseURL(base string) string {
	return strings.TrimRight(base, "/") + "/browse/" + i.Key
}

// Option configures the Jira client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL  string
	username string
	token    string
	http     *http.Client
}

// NewClient creates a Jira client authenticating with basic auth
// (username plus API token).
func NewClient(baseURL, username, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		token:    token,
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
			return nil, 0, eris.Wrap(err, "jira: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.SetBasicAuth(c.username, c.token)

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
			return nil, resp.StatusCode, eris.Wrap(readErr, "jira: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("jira: status %d: %s", resp.StatusCode, string(body))
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

func (c *httpClient) CreateIssue(ctx context.Context, req CreateIssueRequest) (*CreatedIssue, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "jira: marshal issue")
	}

	body, statusCode, err := c.retryDo(ctx, http.MethodPost, c.baseURL+"/rest/api/2/issue/", payload)
	if err != nil {
		return nil, eris.Wrap(err, "jira: create issue")
	}

	if statusCode != http.StatusCreated {
		return nil, eris.Errorf("jira: unexpected status %d: %s", statusCode, string(body))
	}

	var created CreatedIssue
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, eris.Wrap(err, "jira: unmarshal response")
	}

	return &created, nil
}
