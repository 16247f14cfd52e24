package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainIssue "roomkey/internal/domain/cardissue"
	"roomkey/internal/infrastructure/database/postgres/models"
)

// DeviceLogRepository implements domain cardissue.LogRepository.
type DeviceLogRepository struct {
	db *DB
}

// NewDeviceLogRepository creates a new device log repository.
func NewDeviceLogRepository(db *DB) domainIssue.LogRepository {
	return &DeviceLogRepository{db: db}
}

func (r *DeviceLogRepository) Append(ctx context.Context, log *domainIssue.DeviceLog) error {
	log.CreatedAt = time.Now()

	dbModel := models.ToDeviceLogModel(log)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to append device log: %w", err)
	}

	log.ID = dbModel.ID
	return nil
}

func (r *DeviceLogRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*domainIssue.DeviceLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var dbModels []models.DeviceLogModel
	err := r.db.DB.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list device logs: %w", err)
	}

	logs := make([]*domainIssue.DeviceLog, len(dbModels))
	for i := range dbModels {
		logs[i] = models.ToDeviceLogEntity(&dbModels[i])
	}
	return logs, nil
}
