package agentd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"roomkey/internal/bridge"
	"roomkey/internal/config"
	"roomkey/internal/domain/cardissue"
	"roomkey/internal/usecase/cardqueue"
)

func newTestRunner(serverURL string, maxRetries int) *Runner {
	creds := &Credentials{
		AgentID:    uuid.New(),
		AgentToken: "test-token",
		HotelID:    uuid.New(),
	}
	client := NewClient(serverURL, creds.AgentToken)
	bridgeClient := bridge.NewClient(config.BridgeConfig{BaseURL: "http://127.0.0.1:1"})
	agentCfg := config.AgentConfig{
		ServerURL:    serverURL,
		PollInterval: time.Minute,
		MaxRetries:   maxRetries,
		RetryDelay:   time.Millisecond,
	}
	return NewRunner(client, creds, bridgeClient, config.SequencerConfig{}, agentCfg, NewHub())
}

func TestReportTerminalRetriesTransientFailures(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "database unavailable",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{},
		})
	}))
	defer srv.Close()

	runner := newTestRunner(srv.URL, 3)
	req := &cardqueue.UpdateStatusRequest{Status: string(cardissue.StatusDone)}
	if err := runner.reportTerminal(context.Background(), uuid.New(), req); err != nil {
		t.Fatalf("reportTerminal after transient failures: %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestReportTerminalGivesUpAfterRetryBudget(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "database unavailable",
		})
	}))
	defer srv.Close()

	runner := newTestRunner(srv.URL, 2)
	req := &cardqueue.UpdateStatusRequest{Status: string(cardissue.StatusFailed)}
	err := runner.reportTerminal(context.Background(), uuid.New(), req)
	if err == nil {
		t.Fatal("expected error once the retry budget is exhausted")
	}
	// maxRetries=2 means one initial attempt plus two retries.
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestReportTerminalStopsOnCancelledContext(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "down"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newTestRunner(srv.URL, 5)
	req := &cardqueue.UpdateStatusRequest{Status: string(cardissue.StatusDone)}
	err := runner.reportTerminal(ctx, uuid.New(), req)
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if got := atomic.LoadInt32(&attempts); got > 1 {
		t.Fatalf("attempts = %d, want at most 1 after cancellation", got)
	}
}
