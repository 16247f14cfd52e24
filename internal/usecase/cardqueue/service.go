package cardqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainAgent "roomkey/internal/domain/agent"
	domainIssue "roomkey/internal/domain/cardissue"
	"roomkey/internal/logger"
	appErrors "roomkey/pkg/errors"
	"roomkey/pkg/utils"
)

// Notifier is told about freshly created issues so subscribed agents can
// poll immediately instead of waiting out their interval.
type Notifier interface {
	CardIssueCreated(ctx context.Context, issue *domainIssue.CardIssue)
}

// Service implements the card-issue queue use cases.
type Service struct {
	issueRepo  domainIssue.Repository
	agentRepo  domainAgent.Repository
	notifier   Notifier
	maxRetries int
}

// NewService creates a new card queue service. notifier may be nil when no
// broker is configured; polling remains the fallback.
func NewService(issueRepo domainIssue.Repository, agentRepo domainAgent.Repository, notifier Notifier, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{
		issueRepo:  issueRepo,
		agentRepo:  agentRepo,
		notifier:   notifier,
		maxRetries: maxRetries,
	}
}

// CreateIssue enqueues a new pending card issue for a booking.
func (s *Service) CreateIssue(ctx context.Context, req *CreateIssueRequest) (*IssueResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	// Request binding already rejects payloads without a type, so only the
	// cross-field match is left to check here.
	cardType := domainIssue.CardType(req.CardType)
	if req.Payload.Type != cardType {
		return nil, appErrors.NewAppError("PAYLOAD_MISMATCH", "Payload type does not match card type", nil)
	}
	if err := req.Payload.Validate(); err != nil {
		return nil, appErrors.NewAppError("INVALID_PAYLOAD", "Invalid card payload", err)
	}

	issue := &domainIssue.CardIssue{
		HotelID:   req.HotelID,
		RoomID:    req.RoomID,
		BookingID: req.BookingID,
		CardType:  cardType,
		Payload:   req.Payload,
		Status:    domainIssue.StatusPending,
	}

	if err := s.issueRepo.Create(ctx, issue); err != nil {
		return nil, err
	}

	logger.Info("Card issue created",
		zap.String("issue_id", issue.ID.String()),
		zap.String("hotel_id", issue.HotelID.String()),
		zap.String("card_type", string(issue.CardType)),
	)

	if s.notifier != nil {
		s.notifier.CardIssueCreated(ctx, issue)
	}

	return ToIssueResponse(issue), nil
}

// GetIssue returns a single card issue.
func (s *Service) GetIssue(ctx context.Context, issueID uuid.UUID) (*IssueResponse, error) {
	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return ToIssueResponse(issue), nil
}

// ListIssues returns a paginated slice of the queue.
func (s *Service) ListIssues(ctx context.Context, req *IssueFilterRequest) (*IssueListResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid query parameters", err)
	}

	if req.Limit <= 0 {
		req.Limit = 50
	}

	filter := &domainIssue.Filter{
		HotelID: req.HotelID,
		AgentID: req.AgentID,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	if req.Status != nil {
		status := domainIssue.IssueStatus(*req.Status)
		filter.Status = &status
	}

	issues, total, err := s.issueRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]IssueResponse, len(issues))
	for i, issue := range issues {
		responses[i] = *ToIssueResponse(issue)
	}

	return &IssueListResponse{
		Issues: responses,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}

// UpdateStatus drives the queue state machine. Transitions that violate the
// monotonic ordering are rejected, fields absent from the request never
// overwrite stored columns, and terminal transitions double as a liveness
// signal for the acting agent.
func (s *Service) UpdateStatus(ctx context.Context, issueID uuid.UUID, req *UpdateStatusRequest) (*IssueResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	newStatus := domainIssue.IssueStatus(req.Status)
	if err := domainIssue.ValidateStatusTransition(issue.Status, newStatus); err != nil {
		return nil, err
	}

	update := &domainIssue.StatusUpdate{
		Status:         newStatus,
		AgentID:        req.AgentID,
		DeviceID:       req.DeviceID,
		Result:         req.Result,
		ErrorMessage:   req.ErrorMessage,
		IncrementRetry: domainIssue.IsRetry(issue.Status, newStatus),
	}

	if err := s.issueRepo.UpdateStatus(ctx, issueID, issue.Status, update); err != nil {
		return nil, err
	}

	// Job completion is the most reliable heartbeat a long-lived, low
	// traffic agent gives us, so terminal transitions refresh liveness.
	if newStatus.IsTerminal() {
		actingAgent := req.AgentID
		if actingAgent == nil {
			actingAgent = issue.AgentID
		}
		if actingAgent != nil {
			if err := s.agentRepo.RefreshLiveness(ctx, *actingAgent, time.Now()); err != nil {
				logger.Warn("Failed to refresh agent liveness from issue completion",
					zap.String("agent_id", actingAgent.String()),
					zap.Error(err),
				)
			}
		}
	}

	updated, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return ToIssueResponse(updated), nil
}

// ClaimNext hands the oldest open issue of the agent's hotel to that agent.
// Claiming also refreshes the agent's liveness, since a claim proves the
// agent process is up and polling.
func (s *Service) ClaimNext(ctx context.Context, agentID, hotelID uuid.UUID) (*IssueResponse, error) {
	issue, err := s.issueRepo.ClaimNext(ctx, agentID, hotelID)
	if err != nil {
		return nil, err
	}

	if err := s.agentRepo.RefreshLiveness(ctx, agentID, time.Now()); err != nil {
		logger.Warn("failed to refresh agent liveness after claim",
			zap.String("agent_id", agentID.String()),
			zap.Error(err),
		)
	}

	return ToIssueResponse(issue), nil
}

// Retry re-queues a failed issue, bounded by the configured retry limit.
func (s *Service) Retry(ctx context.Context, issueID uuid.UUID) (*IssueResponse, error) {
	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	// Only failed issues are retryable; a pending issue transitioning to
	// queued is a first attempt, not a retry, and must not bump the count.
	if issue.Status != domainIssue.StatusFailed {
		return nil, appErrors.NewAppError(
			"INVALID_TRANSITION",
			fmt.Sprintf("Cannot retry an issue in status %s", issue.Status),
			nil,
		)
	}
	if issue.RetryCount >= s.maxRetries {
		return nil, domainIssue.ErrRetryLimitReached
	}

	update := &domainIssue.StatusUpdate{
		Status:         domainIssue.StatusQueued,
		IncrementRetry: true,
	}
	if err := s.issueRepo.UpdateStatus(ctx, issueID, issue.Status, update); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.CardIssueCreated(ctx, issue)
	}

	updated, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return ToIssueResponse(updated), nil
}
