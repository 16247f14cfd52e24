package agentd

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roomkey/internal/bridge"
	"roomkey/internal/config"
	"roomkey/internal/domain/cardissue"
	"roomkey/internal/logger"
	"roomkey/internal/sequencer"
	"roomkey/internal/usecase/agentsvc"
	"roomkey/internal/usecase/cardqueue"
)

// bridgeProgrammer adapts the bridge client to the sequencer's interface.
type bridgeProgrammer struct {
	client *bridge.Client
}

func (p *bridgeProgrammer) CheckAvailability(ctx context.Context) bool {
	return p.client.CheckAvailability(ctx)
}

func (p *bridgeProgrammer) ProgramCard(ctx context.Context, cardType cardissue.CardType, payload cardissue.CardPayload) (*sequencer.ProgramOutcome, error) {
	result, err := p.client.ProgramCard(ctx, cardType, payload)
	if err != nil {
		return nil, err
	}
	return &sequencer.ProgramOutcome{
		Success: result.Success,
		CardUID: result.CardUID,
		Error:   result.Error,
	}, nil
}

// Status is the snapshot the local UI reads.
type Status struct {
	Paired          bool       `json:"paired"`
	AgentID         *uuid.UUID `json:"agentId,omitempty"`
	HotelID         *uuid.UUID `json:"hotelId,omitempty"`
	Busy            bool       `json:"busy"`
	CurrentIssueID  *uuid.UUID `json:"currentIssueId,omitempty"`
	BridgeAvailable bool       `json:"bridgeAvailable"`
	ReaderConnected bool       `json:"readerConnected"`
	UIClients       int        `json:"uiClients"`
}

// Runner executes queued card issues one at a time. There is exactly one
// physical reader per agent and cards are swapped by hand, so all sequence
// runs serialize on a single mutex; concurrent issues queue, never
// interleave.
type Runner struct {
	client *Client
	creds  *Credentials
	bridge *bridge.Client
	seq    *sequencer.Sequencer
	hub    *Hub
	cfg    config.AgentConfig

	trigger chan struct{}

	// readerMu serializes everything that touches the card reader.
	readerMu sync.Mutex

	mu           sync.RWMutex
	currentIssue *uuid.UUID
}

func NewRunner(client *Client, creds *Credentials, bridgeClient *bridge.Client, seqCfg config.SequencerConfig, agentCfg config.AgentConfig, hub *Hub) *Runner {
	return &Runner{
		client:  client,
		creds:   creds,
		bridge:  bridgeClient,
		seq:     sequencer.New(&bridgeProgrammer{client: bridgeClient}, seqCfg),
		hub:     hub,
		cfg:     agentCfg,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger wakes the runner ahead of its poll interval. Used by the broker
// subscription; coalesces when a wake-up is already pending.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run polls the queue until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	logger.Info("agent runner started",
		zap.String("agent_id", r.creds.AgentID.String()),
		zap.Duration("poll_interval", r.cfg.PollInterval),
	)

	r.drainQueue(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("agent runner stopping")
			return
		case <-ticker.C:
			r.drainQueue(ctx)
		case <-r.trigger:
			r.drainQueue(ctx)
		}
	}
}

// drainQueue claims and executes issues until the queue is empty or a
// claim fails.
func (r *Runner) drainQueue(ctx context.Context) {
	for ctx.Err() == nil {
		issue, err := r.claimWithRetry(ctx)
		if err != nil {
			logger.Warn("failed to claim card issue", zap.Error(err))
			return
		}
		if issue == nil {
			return
		}
		r.processIssue(ctx, issue)
	}
}

func (r *Runner) claimWithRetry(ctx context.Context) (*cardqueue.IssueResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.cfg.RetryDelay):
			}
		}
		issue, err := r.client.ClaimIssue(ctx)
		if err == nil {
			return issue, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// reportTerminal PATCHes the terminal status with bounded retries. A lost
// terminal report would strand the issue in in_progress, so transient
// cloud failures are retried before giving up.
func (r *Runner) reportTerminal(ctx context.Context, issueID uuid.UUID, req *cardqueue.UpdateStatusRequest) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryDelay):
			}
		}
		if _, err := r.client.UpdateIssueStatus(ctx, issueID, req); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// processIssue runs the full lifecycle of one claimed issue: mark
// in_progress, drive the sequence, report the terminal status. Terminal
// reporting is retried because losing a completed result would strand the
// issue in in_progress.
func (r *Runner) processIssue(ctx context.Context, issue *cardqueue.IssueResponse) {
	r.setCurrent(&issue.ID)
	defer r.setCurrent(nil)

	logger.Info("processing card issue",
		zap.String("issue_id", issue.ID.String()),
		zap.String("card_type", issue.CardType),
	)

	inProgress := &cardqueue.UpdateStatusRequest{
		Status:   string(cardissue.StatusInProgress),
		DeviceID: r.creds.DeviceID,
	}
	if _, err := r.client.UpdateIssueStatus(ctx, issue.ID, inProgress); err != nil {
		logger.Warn("failed to mark issue in progress",
			zap.String("issue_id", issue.ID.String()),
			zap.Error(err),
		)
		return
	}

	result := r.runSequence(ctx, issue.Payload, &issue.ID)

	status := cardissue.StatusDone
	var errMsg *string
	if !result.Success {
		status = cardissue.StatusFailed
		msg := summarizeFailures(result)
		errMsg = &msg
	}

	terminal := &cardqueue.UpdateStatusRequest{
		Status:       string(status),
		Result:       result,
		ErrorMessage: errMsg,
		DeviceID:     r.creds.DeviceID,
	}
	if err := r.reportTerminal(ctx, issue.ID, terminal); err != nil {
		logger.Error("failed to report card issue result",
			zap.String("issue_id", issue.ID.String()),
			zap.Error(err),
		)
		return
	}

	logger.Info("card issue finished",
		zap.String("issue_id", issue.ID.String()),
		zap.String("status", string(status)),
		zap.Int("completed_cards", result.CompletedCards),
	)
}

// runSequence drives the sequencer, fanning progress out to the UI socket
// and recording each successfully programmed card in the device log.
func (r *Runner) runSequence(ctx context.Context, payload cardissue.CardPayload, issueID *uuid.UUID) *cardissue.SequenceResult {
	r.readerMu.Lock()
	defer r.readerMu.Unlock()

	observe := func(p sequencer.Progress) {
		r.hub.Broadcast(p)

		if p.State == sequencer.StateSuccess {
			raw, _ := json.Marshal(map[string]string{"cardType": string(p.CardType)})
			logReq := &agentsvc.DeviceLogRequest{
				EventType:   string(cardissue.EventCardProgrammed),
				Payload:     raw,
				DeviceID:    r.creds.DeviceID,
				CardIssueID: issueID,
			}
			if err := r.client.AppendLog(ctx, r.creds.AgentID, logReq); err != nil {
				logger.Warn("failed to append device log", zap.Error(err))
			}
		}
	}

	return r.seq.Run(ctx, payload, observe)
}

// EncodeCard runs a sequence directly for the local UI, outside the cloud
// queue. It shares the reader mutex with queue processing.
func (r *Runner) EncodeCard(ctx context.Context, payload cardissue.CardPayload) *cardissue.SequenceResult {
	return r.runSequence(ctx, payload, nil)
}

// Status assembles the snapshot served on the local status endpoint.
func (r *Runner) Status(ctx context.Context) *Status {
	s := &Status{
		Paired:    true,
		AgentID:   &r.creds.AgentID,
		HotelID:   &r.creds.HotelID,
		UIClients: r.hub.ClientCount(),
	}

	r.mu.RLock()
	s.CurrentIssueID = r.currentIssue
	s.Busy = r.currentIssue != nil
	r.mu.RUnlock()

	s.BridgeAvailable = r.bridge.CheckAvailability(ctx)
	if s.BridgeAvailable {
		if readerStatus, err := r.bridge.GetReaderStatus(ctx); err == nil {
			s.ReaderConnected = readerStatus.Connected
		}
	}
	return s
}

func (r *Runner) setCurrent(id *uuid.UUID) {
	r.mu.Lock()
	r.currentIssue = id
	r.mu.Unlock()
}

func summarizeFailures(result *cardissue.SequenceResult) string {
	for _, card := range result.Cards {
		if !card.Success {
			return string(card.CardType) + ": " + card.Error
		}
	}
	return "sequence failed"
}
