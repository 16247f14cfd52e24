package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"roomkey/internal/config"
	"roomkey/internal/domain/cardissue"
	"roomkey/internal/logger"
)

// Client talks to the local USB/HID bridge process over HTTP. Every call is
// individually timeout-bounded because the hardware behind the bridge can
// hang indefinitely; the client never blocks a caller past the declared
// timeout for that operation.
type Client struct {
	baseURL string
	http    *http.Client
	cfg     config.BridgeConfig
}

func NewClient(cfg config.BridgeConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		// Per-op deadlines come from context; the transport-level timeout
		// is a backstop above the longest declared operation.
		http: &http.Client{Timeout: cfg.SequenceTimeout + 10*time.Second},
		cfg:  cfg,
	}
}

// CheckAvailability probes the bridge health endpoint. Any transport error
// or non-2xx answer means unavailable; this operation never returns an
// error to the caller.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// GetReaderStatus returns the reader state. A disconnected reader is a
// successful result; only transport failure surfaces as ErrBridgeUnavailable.
func (c *Client) GetReaderStatus(ctx context.Context) (*ReaderStatus, error) {
	var status ReaderStatus
	if err := c.do(ctx, http.MethodGet, "/api/reader/status", c.cfg.StatusTimeout, nil, &status); err != nil {
		return nil, &OpError{Op: "reader status", Err: err}
	}
	return &status, nil
}

// ReconnectReader asks the bridge to re-open the reader. Reconnect failure
// is an expected, recoverable outcome, so it maps to false rather than an
// error.
func (c *Client) ReconnectReader(ctx context.Context) bool {
	var result struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/reader/reconnect", c.cfg.ReconnectTimeout, nil, &result); err != nil {
		logger.Warn("reader reconnect failed", zap.Error(err))
		return false
	}
	return result.Success
}

// DetectCard checks whether a card is present on the reader.
func (c *Client) DetectCard(ctx context.Context) (*DetectResult, error) {
	var result DetectResult
	if err := c.do(ctx, http.MethodPost, "/api/card/detect", c.cfg.DetectTimeout, nil, &result); err != nil {
		return nil, &OpError{Op: "card detect", Err: err}
	}
	return &result, nil
}

// ProgramCard encodes one card. A card-level failure comes back inside the
// result with Success=false; only transport failure is an error.
func (c *Client) ProgramCard(ctx context.Context, cardType cardissue.CardType, payload cardissue.CardPayload) (*ProgramResult, error) {
	reqBody := ProgramRequest{
		CardType: string(cardType),
		Payload:  payload,
	}
	var result ProgramResult
	if err := c.do(ctx, http.MethodPost, "/api/card/program", c.cfg.ProgramTimeout, &reqBody, &result); err != nil {
		return nil, &OpError{Op: "card program", Err: err}
	}
	return &result, nil
}

// ProgramSequence runs the bridge's own batch endpoint for the full 5-card
// sequence. Normally the sequencer drives per-card programming itself; this
// exists for bridges that implement the sequence natively.
func (c *Client) ProgramSequence(ctx context.Context, payload cardissue.CardPayload) (*cardissue.SequenceResult, error) {
	reqBody := SequenceRequest{Payload: payload}
	var result cardissue.SequenceResult
	if err := c.do(ctx, http.MethodPost, "/api/card/program-sequence", c.cfg.SequenceTimeout, &reqBody, &result); err != nil {
		return nil, &OpError{Op: "card program-sequence", Err: err}
	}
	return &result, nil
}

// ListDevices enumerates the peripherals the bridge can see.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.do(ctx, http.MethodGet, "/api/devices", c.cfg.StatusTimeout, nil, &devices); err != nil {
		return nil, &OpError{Op: "device list", Err: err}
	}
	return devices, nil
}

func (c *Client) do(ctx context.Context, method, path string, timeout time.Duration, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

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

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrBridgeUnavailable, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: bad response body: %v", ErrBridgeUnavailable, err)
		}
	}
	return nil
}
