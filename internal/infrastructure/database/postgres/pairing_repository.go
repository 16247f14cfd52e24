package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainAgent "roomkey/internal/domain/agent"
	"roomkey/internal/infrastructure/database/postgres/models"
)

// PairingRepository implements domain agent.PairingRepository.
type PairingRepository struct {
	db *DB
}

// NewPairingRepository creates a new pairing token repository.
func NewPairingRepository(db *DB) domainAgent.PairingRepository {
	return &PairingRepository{db: db}
}

func (r *PairingRepository) Create(ctx context.Context, token *domainAgent.PairingToken) error {
	dbModel := models.ToPairingTokenModel(token)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create pairing token: %w", err)
	}

	token.ID = dbModel.ID
	return nil
}

func (r *PairingRepository) GetByToken(ctx context.Context, token string) (*domainAgent.PairingToken, error) {
	var dbModel models.PairingTokenModel
	err := r.db.DB.WithContext(ctx).
		Where("token = ?", token).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAgent.ErrPairingTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pairing token: %w", err)
	}

	return models.ToPairingTokenEntity(&dbModel), nil
}

// Redeem consumes the pairing token and creates the agent (and optionally
// its device) in one transaction. The token consumption is a conditional
// update on used_at, so a concurrent second redemption loses the race and
// leaves no partial state behind.
func (r *PairingRepository) Redeem(ctx context.Context, token string, now time.Time, newAgent *domainAgent.Agent, newDevice *domainAgent.Device) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dbToken models.PairingTokenModel
		err := tx.Where("token = ?", token).First(&dbToken).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainAgent.ErrPairingTokenInvalid
		}
		if err != nil {
			return fmt.Errorf("failed to look up pairing token: %w", err)
		}

		// Expiry is checked independently of used_at: an expired-but-unused
		// token is still rejected.
		if now.After(dbToken.ExpiresAt) {
			return domainAgent.ErrPairingTokenExpired
		}
		if dbToken.UsedAt != nil {
			return domainAgent.ErrPairingTokenUsed
		}

		var existing int64
		if err := tx.Model(&models.AgentModel{}).
			Where("hotel_id = ? AND fingerprint = ?", newAgent.HotelID, newAgent.Fingerprint).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check fingerprint: %w", err)
		}
		if existing > 0 {
			return domainAgent.ErrFingerprintTaken
		}

		consumed := tx.Model(&models.PairingTokenModel{}).
			Where("id = ? AND used_at IS NULL", dbToken.ID).
			Update("used_at", now)
		if consumed.Error != nil {
			return fmt.Errorf("failed to consume pairing token: %w", consumed.Error)
		}
		if consumed.RowsAffected == 0 {
			return domainAgent.ErrPairingTokenUsed
		}

		dbAgent := models.ToAgentModel(newAgent)
		if err := tx.Create(dbAgent).Error; err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		newAgent.ID = dbAgent.ID

		if newDevice != nil {
			newDevice.AgentID = dbAgent.ID
			dbDevice := models.ToDeviceModel(newDevice)
			if err := tx.Create(dbDevice).Error; err != nil {
				return fmt.Errorf("failed to create device: %w", err)
			}
			newDevice.ID = dbDevice.ID
		}

		return nil
	})
}
