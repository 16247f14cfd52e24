package cardissue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for card-issue queue persistence.
type Repository interface {
	Create(ctx context.Context, issue *CardIssue) error
	GetByID(ctx context.Context, issueID uuid.UUID) (*CardIssue, error)
	List(ctx context.Context, filter *Filter) ([]*CardIssue, int64, error)
	// UpdateStatus applies a status transition guarded by the expected
	// current status; RowsAffected==0 surfaces as ErrStaleUpdate. Fields
	// absent from the update never overwrite stored columns.
	UpdateStatus(ctx context.Context, issueID uuid.UUID, expected IssueStatus, update *StatusUpdate) error
	// ClaimNext atomically assigns the oldest open issue of the hotel to
	// the agent and marks it queued. Issues already assigned to another
	// agent are skipped. Returns ErrNoClaimableIssue when the queue is
	// empty.
	ClaimNext(ctx context.Context, agentID, hotelID uuid.UUID) (*CardIssue, error)
	// CountOpenByAgent returns the number of pending/queued issues per
	// agent, for the computed queueLength in agent listings.
	CountOpenByAgent(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// StatusUpdate carries the mutable fields of a status transition. Pointer
// fields left nil are not written.
type StatusUpdate struct {
	Status         IssueStatus
	AgentID        *uuid.UUID
	DeviceID       *uuid.UUID
	Result         *SequenceResult
	ErrorMessage   *string
	IncrementRetry bool
	CompletedAt    *time.Time
}

// Filter represents filtering options for listing card issues.
type Filter struct {
	HotelID *uuid.UUID
	AgentID *uuid.UUID
	Status  *IssueStatus
	Limit   int
	Offset  int
}

// LogRepository defines the interface for device log persistence.
type LogRepository interface {
	Append(ctx context.Context, log *DeviceLog) error
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*DeviceLog, error)
}
