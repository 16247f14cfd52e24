package pairing

import (
	"time"

	"github.com/google/uuid"
)

type GenerateRequest struct {
	HotelID   uuid.UUID `json:"hotelId" validate:"required"`
	AgentName string    `json:"agentName" validate:"required,min=2,max=100"`
}

type GenerateResponse struct {
	PairingToken string    `json:"pairingToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type ConfirmRequest struct {
	PairingToken string      `json:"pairingToken" validate:"required"`
	Fingerprint  string      `json:"fingerprint" validate:"required,min=6,max=255"`
	AgentName    string      `json:"agentName" validate:"omitempty,min=2,max=100"`
	DeviceInfo   *DeviceInfo `json:"deviceInfo" validate:"omitempty"`
}

type DeviceInfo struct {
	Model  string `json:"model" validate:"omitempty,max=255"`
	Serial string `json:"serial" validate:"omitempty,max=255"`
	Vendor string `json:"vendor" validate:"omitempty,max=255"`
}

type ConfirmResponse struct {
	AgentID    uuid.UUID  `json:"agentId"`
	AgentToken string     `json:"agentToken"`
	HotelID    uuid.UUID  `json:"hotelId"`
	DeviceID   *uuid.UUID `json:"deviceId,omitempty"`
}
