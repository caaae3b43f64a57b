// Package client is the REST and event-stream client for the workspace
// gateway. It speaks the public surface the gateway exposes, identifying the
// caller with the x-user-id header on every request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the gateway on behalf of one user.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the command request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if cl.httpClient == nil {
			cl.httpClient = &http.Client{}
		}
		cl.httpClient.Timeout = d
	}
}

// New creates a client for baseURL acting as userID.
func New(baseURL, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs one JSON request and decodes the response into result
// when non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-user-id", c.userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Health checks the gateway health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns all sessions visible to the user.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := c.doRequest(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession creates a new session.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.doRequest(ctx, http.MethodPost, "/sessions", map[string]interface{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendPrompt submits a prompt to a session.
func (c *Client) SendPrompt(ctx context.Context, sessionID string, req PromptRequest) error {
	path := "/sessions/" + url.PathEscape(sessionID) + "/prompt"
	return c.doRequest(ctx, http.MethodPost, path, req, nil)
}

// ListMessages returns the messages of a session with their parts.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]MessageWithParts, error) {
	var out []MessageWithParts
	path := "/sessions/" + url.PathEscape(sessionID) + "/message"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPermissions returns all pending permission requests. The endpoint is
// optional upstream; callers treat errors as an empty collection.
func (c *Client) ListPermissions(ctx context.Context) ([]PermissionRequest, error) {
	var out []PermissionRequest
	if err := c.doRequest(ctx, http.MethodGet, "/permission", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListQuestions returns all pending question requests. Optional upstream,
// same as ListPermissions.
func (c *Client) ListQuestions(ctx context.Context) ([]QuestionRequest, error) {
	var out []QuestionRequest
	if err := c.doRequest(ctx, http.MethodGet, "/question", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RespondPermission answers a pending permission request.
func (c *Client) RespondPermission(ctx context.Context, sessionID, permissionID string, reply PermissionReply) error {
	path := "/sessions/" + url.PathEscape(sessionID) + "/permissions/" + url.PathEscape(permissionID)
	return c.doRequest(ctx, http.MethodPost, path, reply, nil)
}

// AnswerQuestion answers a pending question request.
func (c *Client) AnswerQuestion(ctx context.Context, sessionID, questionID string, reply QuestionReply) error {
	path := "/sessions/" + url.PathEscape(sessionID) + "/questions/" + url.PathEscape(questionID)
	return c.doRequest(ctx, http.MethodPost, path, reply, nil)
}
