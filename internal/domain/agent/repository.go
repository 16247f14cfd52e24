package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for agent persistence.
type Repository interface {
	GetByID(ctx context.Context, agentID uuid.UUID) (*Agent, error)
	GetByToken(ctx context.Context, token string) (*Agent, error)
	GetByFingerprint(ctx context.Context, hotelID uuid.UUID, fingerprint string) (*Agent, error)
	List(ctx context.Context, filter *Filter) ([]*Agent, error)
	UpdateStatus(ctx context.Context, agentID uuid.UUID, status AgentStatus) error
	// RefreshLiveness sets last_seen_at and flips the agent online.
	RefreshLiveness(ctx context.Context, agentID uuid.UUID, at time.Time) error
	// MarkStale flips agents offline whose last_seen_at predates the cutoff.
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Filter represents filtering options for listing agents.
type Filter struct {
	HotelID *uuid.UUID
	Status  *AgentStatus
}

// DeviceRepository defines the interface for reader peripheral persistence.
type DeviceRepository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, deviceID uuid.UUID) (*Device, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*Device, error)
	ListByHotel(ctx context.Context, hotelID uuid.UUID) ([]*Device, error)
	SetConnected(ctx context.Context, deviceID uuid.UUID, connected bool) error
	TouchLastUsed(ctx context.Context, deviceID uuid.UUID, at time.Time) error
}

// PairingRepository defines the interface for pairing token persistence.
//
// Redeem performs the whole confirmation atomically: it consumes the token
// (check-and-set on used_at), inserts the agent, and optionally inserts the
// device. It must fail without side effects on an invalid, expired or
// already-used token, or on a fingerprint collision.
type PairingRepository interface {
	Create(ctx context.Context, token *PairingToken) error
	GetByToken(ctx context.Context, token string) (*PairingToken, error)
	Redeem(ctx context.Context, token string, now time.Time, newAgent *Agent, newDevice *Device) error
}
