package agentsvc

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domainAgent "roomkey/internal/domain/agent"
	domainIssue "roomkey/internal/domain/cardissue"
)

type AgentFilterRequest struct {
	HotelID *uuid.UUID `form:"hotel"`
	Status  *string    `form:"status" validate:"omitempty,oneof=online offline error"`
}

type AgentResponse struct {
	ID          uuid.UUID  `json:"id"`
	HotelID     uuid.UUID  `json:"hotel_id"`
	Name        string     `json:"name"`
	Fingerprint string     `json:"fingerprint"`
	Status      string     `json:"status"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	PairedAt    time.Time  `json:"paired_at"`
	QueueLength int64      `json:"queueLength"`
}

type DeviceFilterRequest struct {
	AgentID *uuid.UUID `form:"agent"`
	HotelID *uuid.UUID `form:"hotel"`
}

type DeviceResponse struct {
	ID         uuid.UUID  `json:"id"`
	AgentID    uuid.UUID  `json:"agent_id"`
	Model      string     `json:"model"`
	Serial     string     `json:"serial"`
	Vendor     string     `json:"vendor"`
	Connected  bool       `json:"connected"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

type DeviceLogRequest struct {
	EventType   string          `json:"eventType" validate:"required"`
	Payload     json.RawMessage `json:"payload"`
	DeviceID    *uuid.UUID      `json:"deviceId"`
	CardIssueID *uuid.UUID      `json:"cardIssueId"`
}

type DeviceLogResponse struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

func ToAgentResponse(a *domainAgent.Agent, queueLength int64) *AgentResponse {
	return &AgentResponse{
		ID:          a.ID,
		HotelID:     a.HotelID,
		Name:        a.Name,
		Fingerprint: a.Fingerprint,
		Status:      string(a.Status),
		LastSeenAt:  a.LastSeenAt,
		PairedAt:    a.PairedAt,
		QueueLength: queueLength,
	}
}

func ToDeviceResponse(d *domainAgent.Device) *DeviceResponse {
	return &DeviceResponse{
		ID:         d.ID,
		AgentID:    d.AgentID,
		Model:      d.Model,
		Serial:     d.Serial,
		Vendor:     d.Vendor,
		Connected:  d.Connected,
		LastUsedAt: d.LastUsedAt,
	}
}

func ToDeviceLogResponse(l *domainIssue.DeviceLog) *DeviceLogResponse {
	return &DeviceLogResponse{
		ID:        l.ID,
		EventType: string(l.EventType),
		CreatedAt: l.CreatedAt,
	}
}
