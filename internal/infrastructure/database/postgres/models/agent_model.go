package models

import (
	"time"

	"github.com/google/uuid"

	domainAgent "roomkey/internal/domain/agent"
)

// AgentModel represents the database model for paired agents.
type AgentModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HotelID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_agents_hotel_fingerprint,priority:1"`
	Name        string     `gorm:"type:varchar(255);not null"`
	Fingerprint string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_agents_hotel_fingerprint,priority:2"`
	Token       string     `gorm:"type:varchar(128);not null;uniqueIndex"`
	Status      string     `gorm:"type:varchar(20);not null;default:'online'"`
	LastSeenAt  *time.Time `gorm:"type:timestamp"`
	PairedAt    time.Time  `gorm:"not null"`
	PairedBy    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

func (AgentModel) TableName() string {
	return "agents"
}

// PairingTokenModel represents the database model for pairing tokens.
type PairingTokenModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Token     string     `gorm:"type:varchar(128);not null;uniqueIndex"`
	HotelID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	AgentName string     `gorm:"type:varchar(255);not null"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	UsedAt    *time.Time `gorm:"type:timestamp"`
	CreatedAt time.Time  `gorm:"not null"`
}

func (PairingTokenModel) TableName() string {
	return "pairing_tokens"
}

// DeviceModel represents the database model for reader peripherals.
type DeviceModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AgentID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Model      string     `gorm:"type:varchar(255)"`
	Serial     string     `gorm:"type:varchar(255)"`
	Vendor     string     `gorm:"type:varchar(255)"`
	Connected  bool       `gorm:"not null;default:false"`
	LastUsedAt *time.Time `gorm:"type:timestamp"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}

func ToAgentModel(a *domainAgent.Agent) *AgentModel {
	return &AgentModel{
		ID:          a.ID,
		HotelID:     a.HotelID,
		Name:        a.Name,
		Fingerprint: a.Fingerprint,
		Token:       a.Token,
		Status:      string(a.Status),
		LastSeenAt:  a.LastSeenAt,
		PairedAt:    a.PairedAt,
		PairedBy:    a.PairedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func ToAgentEntity(m *AgentModel) *domainAgent.Agent {
	return &domainAgent.Agent{
		ID:          m.ID,
		HotelID:     m.HotelID,
		Name:        m.Name,
		Fingerprint: m.Fingerprint,
		Token:       m.Token,
		Status:      domainAgent.AgentStatus(m.Status),
		LastSeenAt:  m.LastSeenAt,
		PairedAt:    m.PairedAt,
		PairedBy:    m.PairedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func ToPairingTokenModel(t *domainAgent.PairingToken) *PairingTokenModel {
	return &PairingTokenModel{
		ID:        t.ID,
		Token:     t.Token,
		HotelID:   t.HotelID,
		AgentName: t.AgentName,
		CreatedBy: t.CreatedBy,
		ExpiresAt: t.ExpiresAt,
		UsedAt:    t.UsedAt,
		CreatedAt: t.CreatedAt,
	}
}

func ToPairingTokenEntity(m *PairingTokenModel) *domainAgent.PairingToken {
	return &domainAgent.PairingToken{
		ID:        m.ID,
		Token:     m.Token,
		HotelID:   m.HotelID,
		AgentName: m.AgentName,
		CreatedBy: m.CreatedBy,
		ExpiresAt: m.ExpiresAt,
		UsedAt:    m.UsedAt,
		CreatedAt: m.CreatedAt,
	}
}

func ToDeviceModel(d *domainAgent.Device) *DeviceModel {
	return &DeviceModel{
		ID:         d.ID,
		AgentID:    d.AgentID,
		Model:      d.Model,
		Serial:     d.Serial,
		Vendor:     d.Vendor,
		Connected:  d.Connected,
		LastUsedAt: d.LastUsedAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func ToDeviceEntity(m *DeviceModel) *domainAgent.Device {
	return &domainAgent.Device{
		ID:         m.ID,
		AgentID:    m.AgentID,
		Model:      m.Model,
		Serial:     m.Serial,
		Vendor:     m.Vendor,
		Connected:  m.Connected,
		LastUsedAt: m.LastUsedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
