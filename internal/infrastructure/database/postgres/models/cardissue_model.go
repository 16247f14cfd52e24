package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	domainIssue "roomkey/internal/domain/cardissue"
)

// CardIssueModel represents the database model for the card-issue queue.
type CardIssueModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HotelID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	RoomID       *uuid.UUID     `gorm:"type:uuid"`
	BookingID    *uuid.UUID     `gorm:"type:uuid;index"`
	AgentID      *uuid.UUID     `gorm:"type:uuid;index"`
	DeviceID     *uuid.UUID     `gorm:"type:uuid"`
	CardType     string         `gorm:"type:varchar(50);not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	Status       string         `gorm:"type:varchar(20);not null;default:'pending';index"`
	Result       datatypes.JSON `gorm:"type:jsonb"`
	ErrorMessage *string        `gorm:"type:text"`
	RetryCount   int            `gorm:"type:integer;not null;default:0"`
	CreatedAt    time.Time      `gorm:"not null;index"`
	UpdatedAt    time.Time      `gorm:"not null"`
	CompletedAt  *time.Time     `gorm:"type:timestamp"`
}

func (CardIssueModel) TableName() string {
	return "card_issues"
}

// DeviceLogModel represents the append-only device event log.
type DeviceLogModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AgentID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	DeviceID    *uuid.UUID     `gorm:"type:uuid"`
	CardIssueID *uuid.UUID     `gorm:"type:uuid;index"`
	EventType   string         `gorm:"type:varchar(50);not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}

func (DeviceLogModel) TableName() string {
	return "device_logs"
}

func ToCardIssueModel(i *domainIssue.CardIssue) (*CardIssueModel, error) {
	payload, err := json.Marshal(&i.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var result datatypes.JSON
	if i.Result != nil {
		raw, err := json.Marshal(i.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		result = raw
	}

	return &CardIssueModel{
		ID:           i.ID,
		HotelID:      i.HotelID,
		RoomID:       i.RoomID,
		BookingID:    i.BookingID,
		AgentID:      i.AgentID,
		DeviceID:     i.DeviceID,
		CardType:     string(i.CardType),
		Payload:      payload,
		Status:       string(i.Status),
		Result:       result,
		ErrorMessage: i.ErrorMessage,
		RetryCount:   i.RetryCount,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
		CompletedAt:  i.CompletedAt,
	}, nil
}

func ToCardIssueEntity(m *CardIssueModel) (*domainIssue.CardIssue, error) {
	issue := &domainIssue.CardIssue{
		ID:           m.ID,
		HotelID:      m.HotelID,
		RoomID:       m.RoomID,
		BookingID:    m.BookingID,
		AgentID:      m.AgentID,
		DeviceID:     m.DeviceID,
		CardType:     domainIssue.CardType(m.CardType),
		Status:       domainIssue.IssueStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		RetryCount:   m.RetryCount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		CompletedAt:  m.CompletedAt,
	}

	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &issue.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	if len(m.Result) > 0 {
		var result domainIssue.SequenceResult
		if err := json.Unmarshal(m.Result, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		issue.Result = &result
	}

	return issue, nil
}

func ToDeviceLogModel(l *domainIssue.DeviceLog) *DeviceLogModel {
	return &DeviceLogModel{
		ID:          l.ID,
		AgentID:     l.AgentID,
		DeviceID:    l.DeviceID,
		CardIssueID: l.CardIssueID,
		EventType:   string(l.EventType),
		Payload:     datatypes.JSON(l.Payload),
		CreatedAt:   l.CreatedAt,
	}
}

func ToDeviceLogEntity(m *DeviceLogModel) *domainIssue.DeviceLog {
	return &domainIssue.DeviceLog{
		ID:          m.ID,
		AgentID:     m.AgentID,
		DeviceID:    m.DeviceID,
		CardIssueID: m.CardIssueID,
		EventType:   domainIssue.LogEventType(m.EventType),
		Payload:     json.RawMessage(m.Payload),
		CreatedAt:   m.CreatedAt,
	}
}
