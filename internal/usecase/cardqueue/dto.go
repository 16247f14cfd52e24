package cardqueue

import (
	"time"

	"github.com/google/uuid"

	domainIssue "roomkey/internal/domain/cardissue"
)

type CreateIssueRequest struct {
	HotelID   uuid.UUID               `json:"hotelId" validate:"required"`
	RoomID    *uuid.UUID              `json:"roomId"`
	BookingID *uuid.UUID              `json:"bookingId"`
	CardType  string                  `json:"cardType" validate:"required,card_type"`
	Payload   domainIssue.CardPayload `json:"payload" validate:"required"`
	UserID    *uuid.UUID              `json:"userId"`
}

type UpdateStatusRequest struct {
	Status       string                      `json:"status" validate:"required,issue_status"`
	Result       *domainIssue.SequenceResult `json:"result"`
	ErrorMessage *string                     `json:"error_message"`
	AgentID      *uuid.UUID                  `json:"agentId"`
	DeviceID     *uuid.UUID                  `json:"deviceId"`
}

type IssueFilterRequest struct {
	HotelID *uuid.UUID `form:"hotel"`
	AgentID *uuid.UUID `form:"agent"`
	Status  *string    `form:"status" validate:"omitempty,issue_status"`
	Limit   int        `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset  int        `form:"offset" validate:"omitempty,min=0"`
}

type IssueResponse struct {
	ID           uuid.UUID                   `json:"id"`
	HotelID      uuid.UUID                   `json:"hotel_id"`
	RoomID       *uuid.UUID                  `json:"room_id"`
	BookingID    *uuid.UUID                  `json:"booking_id"`
	AgentID      *uuid.UUID                  `json:"agent_id"`
	DeviceID     *uuid.UUID                  `json:"device_id"`
	CardType     string                      `json:"card_type"`
	Payload      domainIssue.CardPayload     `json:"payload"`
	Status       string                      `json:"status"`
	Result       *domainIssue.SequenceResult `json:"result"`
	ErrorMessage *string                     `json:"error_message"`
	RetryCount   int                         `json:"retry_count"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	CompletedAt  *time.Time                  `json:"completed_at"`
}

type IssueListResponse struct {
	Issues []IssueResponse `json:"issues"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func ToIssueResponse(i *domainIssue.CardIssue) *IssueResponse {
	return &IssueResponse{
		ID:           i.ID,
		HotelID:      i.HotelID,
		RoomID:       i.RoomID,
		BookingID:    i.BookingID,
		AgentID:      i.AgentID,
		DeviceID:     i.DeviceID,
		CardType:     string(i.CardType),
		Payload:      i.Payload,
		Status:       string(i.Status),
		Result:       i.Result,
		ErrorMessage: i.ErrorMessage,
		RetryCount:   i.RetryCount,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
		CompletedAt:  i.CompletedAt,
	}
}
