package cardissue

import "errors"

var (
	ErrIssueNotFound     = errors.New("card issue not found")
	ErrIssueClaimed      = errors.New("card issue is claimed by another agent")
	ErrNoClaimableIssue  = errors.New("no claimable card issue")
	ErrStaleUpdate       = errors.New("card issue was modified concurrently")
	ErrInvalidEventType  = errors.New("invalid device log event type")
	ErrRetryLimitReached = errors.New("retry limit reached")
)
