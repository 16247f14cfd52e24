package agentd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"roomkey/internal/usecase/agentsvc"
	"roomkey/internal/usecase/cardqueue"
	"roomkey/internal/usecase/pairing"
)

// Client calls the cloud API on behalf of a paired agent. All responses use
// the server's response envelope; the client unwraps it and surfaces the
// message on failure.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(serverURL, agentToken string) *Client {
	return &Client{
		baseURL: serverURL,
		token:   agentToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// StatusError carries the HTTP status of a failed cloud call so the runner
// can distinguish auth failures from transient outages.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cloud api: status %d: %s", e.StatusCode, e.Message)
}

// ConfirmPairing redeems a pairing token. Called without an agent token;
// the pairing token is the sole proof.
func ConfirmPairing(ctx context.Context, serverURL string, req *pairing.ConfirmRequest) (*pairing.ConfirmResponse, error) {
	c := NewClient(serverURL, "")
	var resp pairing.ConfirmResponse
	if err := c.do(ctx, http.MethodPost, "/api/pairing/confirm", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClaimIssue asks the server for the next open card issue. Returns
// (nil, nil) when the queue is empty.
func (c *Client) ClaimIssue(ctx context.Context) (*cardqueue.IssueResponse, error) {
	var issue cardqueue.IssueResponse
	err := c.do(ctx, http.MethodPost, "/api/card-issues/claim", nil, &issue)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNoContent {
			return nil, nil
		}
		return nil, err
	}
	return &issue, nil
}

// UpdateIssueStatus PATCHes a lifecycle transition back to the queue.
func (c *Client) UpdateIssueStatus(ctx context.Context, issueID uuid.UUID, req *cardqueue.UpdateStatusRequest) (*cardqueue.IssueResponse, error) {
	var issue cardqueue.IssueResponse
	path := fmt.Sprintf("/api/card-issues/%s/status", issueID)
	if err := c.do(ctx, http.MethodPatch, path, req, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// AppendLog records a device event for this agent.
func (c *Client) AppendLog(ctx context.Context, agentID uuid.UUID, req *agentsvc.DeviceLogRequest) error {
	path := fmt.Sprintf("/api/agents/%s/log", agentID)
	return c.do(ctx, http.MethodPost, path, req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Agent-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cloud api unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &StatusError{StatusCode: http.StatusNoContent}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Message: "unparseable response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &StatusError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}
