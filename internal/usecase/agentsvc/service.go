package agentsvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainAgent "roomkey/internal/domain/agent"
	domainIssue "roomkey/internal/domain/cardissue"
	"roomkey/internal/logger"
	appErrors "roomkey/pkg/errors"
	"roomkey/pkg/utils"
)

// Service implements agent and device use cases on the server side.
type Service struct {
	agentRepo  domainAgent.Repository
	deviceRepo domainAgent.DeviceRepository
	logRepo    domainIssue.LogRepository
	issueRepo  domainIssue.Repository
}

// NewService creates a new agent service.
func NewService(agentRepo domainAgent.Repository, deviceRepo domainAgent.DeviceRepository, logRepo domainIssue.LogRepository, issueRepo domainIssue.Repository) *Service {
	return &Service{
		agentRepo:  agentRepo,
		deviceRepo: deviceRepo,
		logRepo:    logRepo,
		issueRepo:  issueRepo,
	}
}

// ListAgents returns agents with their computed open-queue length.
func (s *Service) ListAgents(ctx context.Context, req *AgentFilterRequest) ([]*AgentResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid query parameters", err)
	}

	filter := &domainAgent.Filter{HotelID: req.HotelID}
	if req.Status != nil {
		status := domainAgent.AgentStatus(*req.Status)
		filter.Status = &status
	}

	agents, err := s.agentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}

	counts, err := s.issueRepo.CountOpenByAgent(ctx, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]*AgentResponse, len(agents))
	for i, a := range agents {
		responses[i] = ToAgentResponse(a, counts[a.ID])
	}
	return responses, nil
}

// ListDevices returns devices for one agent or for all agents of a hotel.
func (s *Service) ListDevices(ctx context.Context, req *DeviceFilterRequest) ([]*DeviceResponse, error) {
	var (
		devices []*domainAgent.Device
		err     error
	)

	switch {
	case req.AgentID != nil:
		devices, err = s.deviceRepo.ListByAgent(ctx, *req.AgentID)
	case req.HotelID != nil:
		devices, err = s.deviceRepo.ListByHotel(ctx, *req.HotelID)
	default:
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Either agent or hotel filter is required", nil)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]*DeviceResponse, len(devices))
	for i, d := range devices {
		responses[i] = ToDeviceResponse(d)
	}
	return responses, nil
}

// AppendLog appends a device log event and treats it as a liveness signal
// for the agent. Connection events additionally flip the device's connected
// flag, and card_programmed events touch the device's last_used_at.
func (s *Service) AppendLog(ctx context.Context, agentID uuid.UUID, req *DeviceLogRequest) (*DeviceLogResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	eventType := domainIssue.LogEventType(req.EventType)
	if !eventType.IsValid() {
		return nil, domainIssue.ErrInvalidEventType
	}

	if _, err := s.agentRepo.GetByID(ctx, agentID); err != nil {
		return nil, err
	}

	entry := &domainIssue.DeviceLog{
		AgentID:     agentID,
		DeviceID:    req.DeviceID,
		CardIssueID: req.CardIssueID,
		EventType:   eventType,
		Payload:     req.Payload,
	}

	if err := s.logRepo.Append(ctx, entry); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.agentRepo.RefreshLiveness(ctx, agentID, now); err != nil {
		logger.Warn("Failed to refresh agent liveness from device log",
			zap.String("agent_id", agentID.String()),
			zap.Error(err),
		)
	}

	if req.DeviceID != nil {
		switch eventType {
		case domainIssue.EventDeviceConnected:
			if err := s.deviceRepo.SetConnected(ctx, *req.DeviceID, true); err != nil {
				logger.Warn("Failed to mark device connected", zap.Error(err))
			}
		case domainIssue.EventDeviceDisconnected:
			if err := s.deviceRepo.SetConnected(ctx, *req.DeviceID, false); err != nil {
				logger.Warn("Failed to mark device disconnected", zap.Error(err))
			}
		case domainIssue.EventCardProgrammed:
			if err := s.deviceRepo.TouchLastUsed(ctx, *req.DeviceID, now); err != nil {
				logger.Warn("Failed to touch device last_used_at", zap.Error(err))
			}
		}
	}

	return ToDeviceLogResponse(entry), nil
}

// MarkStaleAgents flips agents offline when their last_seen_at is older
// than the cutoff interval. Intended to run periodically from the server
// entry point.
func (s *Service) MarkStaleAgents(ctx context.Context, staleAfter time.Duration) (int64, error) {
	return s.agentRepo.MarkStale(ctx, time.Now().Add(-staleAfter))
}
