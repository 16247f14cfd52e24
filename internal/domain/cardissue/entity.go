package cardissue

import (
	"time"

	"github.com/google/uuid"
)

// CardIssue is one unit of work: produce encoded card(s) for a booking.
// It is created by the booking-completion workflow, claimed and mutated only
// by the assigned agent, and read by the reception/admin UI.
type CardIssue struct {
	ID           uuid.UUID
	HotelID      uuid.UUID
	RoomID       *uuid.UUID
	BookingID    *uuid.UUID
	AgentID      *uuid.UUID
	DeviceID     *uuid.UUID
	CardType     CardType
	Payload      CardPayload
	Status       IssueStatus
	Result       *SequenceResult
	ErrorMessage *string
	RetryCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// CardType identifies which card the lock hardware expects, or the full
// provisioning sequence.
type CardType string

const (
	CardAuthorization1 CardType = "authorization_1"
	CardInstallation   CardType = "installation"
	CardAuthorization2 CardType = "authorization_2"
	CardClock          CardType = "clock"
	CardRoom           CardType = "room"
	// CardSequence requests the full ordered 5-card provisioning run.
	CardSequence CardType = "sequence"
)

// SequenceOrder is the fixed programming order required by the lock vendor.
// Two authorization touches bracket installation, clock sync follows both
// authorizations, and the room card is issued last so it is only handed to
// the guest once the lock is fully configured. Never reorder.
var SequenceOrder = [5]CardType{
	CardAuthorization1,
	CardInstallation,
	CardAuthorization2,
	CardClock,
	CardRoom,
}

// IssueStatus represents the queue state of a card issue.
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusQueued     IssueStatus = "queued"
	StatusInProgress IssueStatus = "in_progress"
	StatusDone       IssueStatus = "done"
	StatusFailed     IssueStatus = "failed"
)

// IsTerminal reports whether the status closes the issue.
func (s IssueStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CardResult is the outcome of programming a single card.
type CardResult struct {
	CardType  CardType  `json:"card_type"`
	Success   bool      `json:"success"`
	CardUID   string    `json:"card_uid,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SequenceResult aggregates the per-card outcomes of one programming run.
// Success is true only when every card completed.
type SequenceResult struct {
	Success        bool         `json:"success"`
	CompletedCards int          `json:"completed_cards"`
	TotalCards     int          `json:"total_cards"`
	Cards          []CardResult `json:"cards"`
}
