package cardissue

import "testing"

func TestValidateStatusTransition(t *testing.T) {
	allowed := []struct {
		from, to IssueStatus
	}{
		{StatusPending, StatusQueued},
		{StatusQueued, StatusInProgress},
		{StatusQueued, StatusFailed},
		{StatusInProgress, StatusDone},
		{StatusInProgress, StatusFailed},
		{StatusFailed, StatusQueued},
		// forward skips along the chain
		{StatusPending, StatusInProgress},
		{StatusPending, StatusDone},
		{StatusPending, StatusFailed},
		{StatusQueued, StatusDone},
	}
	for _, tc := range allowed {
		if err := ValidateStatusTransition(tc.from, tc.to); err != nil {
			t.Errorf("expected %s -> %s to be allowed, got %v", tc.from, tc.to, err)
		}
	}

	forbidden := []struct {
		from, to IssueStatus
	}{
		{StatusQueued, StatusPending},
		{StatusInProgress, StatusQueued},
		{StatusInProgress, StatusPending},
		{StatusDone, StatusQueued},
		{StatusDone, StatusFailed},
		{StatusDone, StatusInProgress},
		{StatusFailed, StatusInProgress},
		{StatusFailed, StatusDone},
	}
	for _, tc := range forbidden {
		if err := ValidateStatusTransition(tc.from, tc.to); err == nil {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestValidateStatusTransitionUnknownStatus(t *testing.T) {
	if err := ValidateStatusTransition(IssueStatus("nonsense"), StatusQueued); err == nil {
		t.Error("expected unknown status to be rejected")
	}
}

func TestDoneIsTerminal(t *testing.T) {
	if got := GetAllowedTransitions(StatusDone); len(got) != 0 {
		t.Errorf("done must be terminal, got transitions %v", got)
	}
}

func TestIsRetry(t *testing.T) {
	if !IsRetry(StatusFailed, StatusQueued) {
		t.Error("failed -> queued must count as a retry")
	}
	if IsRetry(StatusPending, StatusQueued) {
		t.Error("pending -> queued must not count as a retry")
	}
	if IsRetry(StatusFailed, StatusDone) {
		t.Error("failed -> done must not count as a retry")
	}
}

func TestIsTerminal(t *testing.T) {
	if !StatusDone.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("done and failed are terminal")
	}
	if StatusPending.IsTerminal() || StatusQueued.IsTerminal() || StatusInProgress.IsTerminal() {
		t.Error("open statuses must not be terminal")
	}
}

func TestSequenceOrderIsFixed(t *testing.T) {
	want := [5]CardType{
		CardAuthorization1,
		CardInstallation,
		CardAuthorization2,
		CardClock,
		CardRoom,
	}
	if SequenceOrder != want {
		t.Fatalf("sequence order changed: %v", SequenceOrder)
	}
}
