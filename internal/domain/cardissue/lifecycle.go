package cardissue

import (
	"fmt"

	appErrors "roomkey/pkg/errors"
)

// State machine for card-issue status transitions. Status only moves
// forward along pending -> queued -> in_progress -> {done|failed}.
// Forward skips along the chain are allowed (a PATCH may take a pending
// issue straight to done); regression is not, except failed -> queued for
// a retry.
var validTransitions = map[IssueStatus][]IssueStatus{
	StatusPending: {
		StatusQueued,
		StatusInProgress,
		StatusDone,
		StatusFailed,
	},
	StatusQueued: {
		StatusInProgress,
		StatusDone,
		StatusFailed, // dispatch failure before the agent ever started
	},
	StatusInProgress: {
		StatusDone,
		StatusFailed,
	},
	StatusFailed: {
		StatusQueued, // retry
	},
	StatusDone: {
		// Terminal state - no transitions
	},
}

// ValidateStatusTransition checks if a status transition is allowed.
func ValidateStatusTransition(currentStatus, newStatus IssueStatus) error {
	allowedStatuses, exists := validTransitions[currentStatus]
	if !exists {
		return appErrors.NewAppError(
			"INVALID_STATUS",
			fmt.Sprintf("Unknown current status: %s", currentStatus),
			nil,
		)
	}

	for _, allowed := range allowedStatuses {
		if newStatus == allowed {
			return nil
		}
	}

	return appErrors.NewAppError(
		"INVALID_TRANSITION",
		fmt.Sprintf("Cannot transition from %s to %s", currentStatus, newStatus),
		nil,
	)
}

// GetAllowedTransitions returns allowed next statuses.
func GetAllowedTransitions(currentStatus IssueStatus) []IssueStatus {
	return validTransitions[currentStatus]
}

// IsRetry reports whether the transition is the failed -> queued re-attempt,
// which is the only transition that increments retry_count.
func IsRetry(currentStatus, newStatus IssueStatus) bool {
	return currentStatus == StatusFailed && newStatus == StatusQueued
}
