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

// DeviceRepository implements domain agent.DeviceRepository.
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new device repository.
func NewDeviceRepository(db *DB) domainAgent.DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, device *domainAgent.Device) error {
	device.CreatedAt = time.Now()
	device.UpdatedAt = time.Now()

	dbModel := models.ToDeviceModel(device)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	device.ID = dbModel.ID
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID uuid.UUID) (*domainAgent.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", deviceID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAgent.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return models.ToDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*domainAgent.Device, error) {
	var dbModels []models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at ASC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]*domainAgent.Device, len(dbModels))
	for i := range dbModels {
		devices[i] = models.ToDeviceEntity(&dbModels[i])
	}
	return devices, nil
}

func (r *DeviceRepository) ListByHotel(ctx context.Context, hotelID uuid.UUID) ([]*domainAgent.Device, error) {
	var dbModels []models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Joins("JOIN agents ON agents.id = devices.agent_id").
		Where("agents.hotel_id = ?", hotelID).
		Order("devices.created_at ASC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list hotel devices: %w", err)
	}

	devices := make([]*domainAgent.Device, len(dbModels))
	for i := range dbModels {
		devices[i] = models.ToDeviceEntity(&dbModels[i])
	}
	return devices, nil
}

func (r *DeviceRepository) SetConnected(ctx context.Context, deviceID uuid.UUID, connected bool) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", deviceID).
		Updates(map[string]interface{}{
			"connected":  connected,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update device connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainAgent.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) TouchLastUsed(ctx context.Context, deviceID uuid.UUID, at time.Time) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", deviceID).
		Updates(map[string]interface{}{
			"last_used_at": at,
			"updated_at":   at,
		}).Error
}
