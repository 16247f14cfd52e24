package agent

import (
	"time"

	"github.com/google/uuid"
)

// Agent represents one physical machine paired to a hotel. It is created
// only through a successful pairing confirmation and is never hard-deleted,
// only marked offline.
type Agent struct {
	ID          uuid.UUID
	HotelID     uuid.UUID
	Name        string
	Fingerprint string
	Token       string
	Status      AgentStatus
	LastSeenAt  *time.Time
	PairedAt    time.Time
	PairedBy    *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgentStatus represents the liveness status of an agent.
type AgentStatus string

const (
	StatusOnline  AgentStatus = "online"
	StatusOffline AgentStatus = "offline"
	StatusError   AgentStatus = "error"
)

// IsOnline checks if the agent has been seen within 5 minutes.
func (a *Agent) IsOnline() bool {
	if a.LastSeenAt == nil {
		return false
	}
	return time.Since(*a.LastSeenAt) < 5*time.Minute
}

// Device is a physical card reader/peripheral owned by exactly one agent.
type Device struct {
	ID         uuid.UUID
	AgentID    uuid.UUID
	Model      string
	Serial     string
	Vendor     string
	Connected  bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PairingToken is a single-use, short-lived credential binding an intended
// agent name to a hotel. Redemption is atomic: a check-and-set on UsedAt.
type PairingToken struct {
	ID        uuid.UUID
	Token     string
	HotelID   uuid.UUID
	AgentName string
	CreatedBy uuid.UUID
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token is past its expiry, regardless of
// whether it was ever redeemed.
func (t *PairingToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *PairingToken) IsUsed() bool {
	return t.UsedAt != nil
}
