package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainAgent "roomkey/internal/domain/agent"
	"roomkey/internal/infrastructure/database/postgres/models"
)

// AgentRepository implements domain agent.Repository.
type AgentRepository struct {
	db *DB
}

// NewAgentRepository creates a new agent repository.
func NewAgentRepository(db *DB) domainAgent.Repository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) GetByID(ctx context.Context, agentID uuid.UUID) (*domainAgent.Agent, error) {
	var dbModel models.AgentModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", agentID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAgent.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return models.ToAgentEntity(&dbModel), nil
}

func (r *AgentRepository) GetByToken(ctx context.Context, token string) (*domainAgent.Agent, error) {
	var dbModel models.AgentModel
	err := r.db.DB.WithContext(ctx).
		Where("token = ?", token).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAgent.ErrInvalidAgentToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent by token: %w", err)
	}

	return models.ToAgentEntity(&dbModel), nil
}

func (r *AgentRepository) GetByFingerprint(ctx context.Context, hotelID uuid.UUID, fingerprint string) (*domainAgent.Agent, error) {
	var dbModel models.AgentModel
	err := r.db.DB.WithContext(ctx).
		Where("hotel_id = ? AND fingerprint = ?", hotelID, fingerprint).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAgent.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent by fingerprint: %w", err)
	}

	return models.ToAgentEntity(&dbModel), nil
}

func (r *AgentRepository) List(ctx context.Context, filter *domainAgent.Filter) ([]*domainAgent.Agent, error) {
	var dbModels []models.AgentModel

	db := r.db.DB.WithContext(ctx).Model(&models.AgentModel{})
	if filter != nil {
		if filter.HotelID != nil {
			db = db.Where("hotel_id = ?", *filter.HotelID)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", string(*filter.Status))
		}
	}

	if err := db.Order("paired_at ASC").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	agents := make([]*domainAgent.Agent, len(dbModels))
	for i := range dbModels {
		agents[i] = models.ToAgentEntity(&dbModels[i])
	}
	return agents, nil
}

func (r *AgentRepository) UpdateStatus(ctx context.Context, agentID uuid.UUID, status domainAgent.AgentStatus) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.AgentModel{}).
		Where("id = ?", agentID).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update agent status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainAgent.ErrAgentNotFound
	}

	return nil
}

func (r *AgentRepository) RefreshLiveness(ctx context.Context, agentID uuid.UUID, at time.Time) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.AgentModel{}).
		Where("id = ?", agentID).
		Updates(map[string]interface{}{
			"last_seen_at": at,
			"status":       string(domainAgent.StatusOnline),
			"updated_at":   at,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to refresh agent liveness: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainAgent.ErrAgentNotFound
	}

	return nil
}

func (r *AgentRepository) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Model(&models.AgentModel{}).
		Where("status = ? AND (last_seen_at IS NULL OR last_seen_at < ?)", string(domainAgent.StatusOnline), cutoff).
		Updates(map[string]interface{}{
			"status":     string(domainAgent.StatusOffline),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark stale agents: %w", result.Error)
	}

	return result.RowsAffected, nil
}
