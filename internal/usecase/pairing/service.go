package pairing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roomkey/internal/config"
	domainAgent "roomkey/internal/domain/agent"
	domainUser "roomkey/internal/domain/user"
	"roomkey/internal/logger"
	appErrors "roomkey/pkg/errors"
	"roomkey/pkg/utils"
)

const (
	// pairingTokenBytes gives 128 bits of entropy for the short-lived token.
	pairingTokenBytes = 16
	// agentTokenBytes gives 256 bits for the long-lived agent credential.
	agentTokenBytes = 32
)

// Service implements the two halves of the pairing protocol: token
// generation on the authenticated admin side and confirmation from the
// unauthenticated agent side. The token is the only bridge between the two
// trust boundaries.
type Service struct {
	pairingRepo domainAgent.PairingRepository
	agentRepo   domainAgent.Repository
	userRepo    domainUser.Repository
	cfg         *config.Config
	now         func() time.Time
}

// NewService creates a new pairing service.
func NewService(pairingRepo domainAgent.PairingRepository, agentRepo domainAgent.Repository, userRepo domainUser.Repository, cfg *config.Config) *Service {
	return &Service{
		pairingRepo: pairingRepo,
		agentRepo:   agentRepo,
		userRepo:    userRepo,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Generate creates a single-use pairing token bound to a hotel and an
// intended agent name. The caller must already be authenticated; whether an
// admin role is additionally required is a deployment decision.
func (s *Service) Generate(ctx context.Context, createdBy uuid.UUID, req *GenerateRequest) (*GenerateResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if s.cfg.Pairing.RequireAdminRole {
		creator, err := s.userRepo.GetByID(ctx, createdBy)
		if err != nil {
			return nil, appErrors.NewAppError("UNAUTHORIZED", "Unknown requester", err)
		}
		if creator.Role != domainUser.RoleAdmin {
			return nil, appErrors.NewAppError("FORBIDDEN", "Admin role required to generate pairing tokens", nil)
		}
	}

	value, err := utils.GenerateOpaqueToken(pairingTokenBytes)
	if err != nil {
		return nil, appErrors.NewAppError("TOKEN_GENERATION_FAILED", "Failed to generate pairing token", err)
	}

	ttl := s.cfg.Pairing.TokenTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	token := &domainAgent.PairingToken{
		Token:     value,
		HotelID:   req.HotelID,
		AgentName: req.AgentName,
		CreatedBy: createdBy,
		ExpiresAt: s.now().Add(ttl),
		CreatedAt: s.now(),
	}

	if err := s.pairingRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	logger.Info("Pairing token generated",
		zap.String("hotel_id", req.HotelID.String()),
		zap.String("agent_name", req.AgentName),
		zap.Time("expires_at", token.ExpiresAt),
	)

	return &GenerateResponse{
		PairingToken: token.Token,
		ExpiresAt:    token.ExpiresAt,
	}, nil
}

// Confirm redeems a pairing token presented by the agent process and mints
// the long-lived agent credential. It is all-or-nothing: an invalid,
// expired or reused token, or a fingerprint collision, leaves no state
// behind.
func (s *Service) Confirm(ctx context.Context, req *ConfirmRequest) (*ConfirmResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	token, err := s.pairingRepo.GetByToken(ctx, req.PairingToken)
	if err != nil {
		return nil, err
	}

	agentToken, err := utils.GenerateOpaqueToken(agentTokenBytes)
	if err != nil {
		return nil, appErrors.NewAppError("TOKEN_GENERATION_FAILED", "Failed to generate agent token", err)
	}

	name := token.AgentName
	if req.AgentName != "" {
		name = req.AgentName
	}

	now := s.now()
	newAgent := &domainAgent.Agent{
		HotelID:     token.HotelID,
		Name:        name,
		Fingerprint: req.Fingerprint,
		Token:       agentToken,
		Status:      domainAgent.StatusOnline,
		LastSeenAt:  &now,
		PairedAt:    now,
		PairedBy:    &token.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var newDevice *domainAgent.Device
	if req.DeviceInfo != nil {
		newDevice = &domainAgent.Device{
			Model:     req.DeviceInfo.Model,
			Serial:    req.DeviceInfo.Serial,
			Vendor:    req.DeviceInfo.Vendor,
			Connected: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.pairingRepo.Redeem(ctx, req.PairingToken, now, newAgent, newDevice); err != nil {
		logger.Warn("Pairing confirmation rejected",
			zap.String("fingerprint", req.Fingerprint),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Info("Agent paired",
		zap.String("agent_id", newAgent.ID.String()),
		zap.String("hotel_id", newAgent.HotelID.String()),
		zap.String("agent_name", newAgent.Name),
	)

	resp := &ConfirmResponse{
		AgentID:    newAgent.ID,
		AgentToken: agentToken,
		HotelID:    newAgent.HotelID,
	}
	if newDevice != nil {
		resp.DeviceID = &newDevice.ID
	}
	return resp, nil
}
