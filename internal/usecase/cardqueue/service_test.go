package cardqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	domainAgent "roomkey/internal/domain/agent"
	domainIssue "roomkey/internal/domain/cardissue"
)

// fakeIssueRepo implements the repository contract in memory, mirroring the
// guarded-update semantics of the real store.
type fakeIssueRepo struct {
	issues map[uuid.UUID]*domainIssue.CardIssue
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{issues: make(map[uuid.UUID]*domainIssue.CardIssue)}
}

func (f *fakeIssueRepo) Create(ctx context.Context, issue *domainIssue.CardIssue) error {
	issue.ID = uuid.New()
	issue.CreatedAt = time.Now()
	issue.UpdatedAt = issue.CreatedAt
	f.issues[issue.ID] = issue
	return nil
}

func (f *fakeIssueRepo) GetByID(ctx context.Context, id uuid.UUID) (*domainIssue.CardIssue, error) {
	issue, ok := f.issues[id]
	if !ok {
		return nil, domainIssue.ErrIssueNotFound
	}
	copied := *issue
	return &copied, nil
}

func (f *fakeIssueRepo) List(ctx context.Context, filter *domainIssue.Filter) ([]*domainIssue.CardIssue, int64, error) {
	var out []*domainIssue.CardIssue
	for _, issue := range f.issues {
		out = append(out, issue)
	}
	return out, int64(len(out)), nil
}

func (f *fakeIssueRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expected domainIssue.IssueStatus, update *domainIssue.StatusUpdate) error {
	issue, ok := f.issues[id]
	if !ok || issue.Status != expected {
		return domainIssue.ErrStaleUpdate
	}
	if update.AgentID != nil && issue.AgentID != nil && *issue.AgentID != *update.AgentID {
		return domainIssue.ErrStaleUpdate
	}

	issue.Status = update.Status
	issue.UpdatedAt = time.Now()
	// Pointer fields left nil are not written.
	if update.AgentID != nil {
		issue.AgentID = update.AgentID
	}
	if update.DeviceID != nil {
		issue.DeviceID = update.DeviceID
	}
	if update.Result != nil {
		issue.Result = update.Result
	}
	if update.ErrorMessage != nil {
		issue.ErrorMessage = update.ErrorMessage
	}
	if update.IncrementRetry {
		issue.RetryCount++
	}
	if update.Status.IsTerminal() {
		now := time.Now()
		issue.CompletedAt = &now
	}
	return nil
}

func (f *fakeIssueRepo) ClaimNext(ctx context.Context, agentID, hotelID uuid.UUID) (*domainIssue.CardIssue, error) {
	var oldest *domainIssue.CardIssue
	for _, issue := range f.issues {
		if issue.HotelID != hotelID {
			continue
		}
		if issue.Status != domainIssue.StatusPending && issue.Status != domainIssue.StatusQueued {
			continue
		}
		if issue.AgentID != nil && *issue.AgentID != agentID {
			continue
		}
		if oldest == nil || issue.CreatedAt.Before(oldest.CreatedAt) {
			oldest = issue
		}
	}
	if oldest == nil {
		return nil, domainIssue.ErrNoClaimableIssue
	}
	oldest.Status = domainIssue.StatusQueued
	oldest.AgentID = &agentID
	copied := *oldest
	return &copied, nil
}

func (f *fakeIssueRepo) CountOpenByAgent(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return map[uuid.UUID]int64{}, nil
}

// livenessAgentRepo records liveness refreshes.
type livenessAgentRepo struct {
	refreshed []uuid.UUID
}

func (f *livenessAgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domainAgent.Agent, error) {
	return nil, domainAgent.ErrAgentNotFound
}
func (f *livenessAgentRepo) GetByToken(ctx context.Context, token string) (*domainAgent.Agent, error) {
	return nil, domainAgent.ErrAgentNotFound
}
func (f *livenessAgentRepo) GetByFingerprint(ctx context.Context, hotelID uuid.UUID, fp string) (*domainAgent.Agent, error) {
	return nil, domainAgent.ErrAgentNotFound
}
func (f *livenessAgentRepo) List(ctx context.Context, filter *domainAgent.Filter) ([]*domainAgent.Agent, error) {
	return nil, nil
}
func (f *livenessAgentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, s domainAgent.AgentStatus) error {
	return nil
}
func (f *livenessAgentRepo) RefreshLiveness(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.refreshed = append(f.refreshed, id)
	return nil
}
func (f *livenessAgentRepo) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type recordingNotifier struct {
	notified []uuid.UUID
}

func (n *recordingNotifier) CardIssueCreated(ctx context.Context, issue *domainIssue.CardIssue) {
	n.notified = append(n.notified, issue.ID)
}

func sequencePayload() domainIssue.CardPayload {
	return domainIssue.CardPayload{
		Type: domainIssue.CardSequence,
		Booking: &domainIssue.BookingCardData{
			BookingRef: "BK-1",
			RoomNumber: "101",
			CheckIn:    time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
			CheckOut:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		},
	}
}

func createTestIssue(t *testing.T, service *Service) *IssueResponse {
	t.Helper()
	issue, err := service.CreateIssue(context.Background(), &CreateIssueRequest{
		HotelID:  uuid.New(),
		CardType: string(domainIssue.CardSequence),
		Payload:  sequencePayload(),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return issue
}

func TestCreateIssueStartsPendingAndNotifies(t *testing.T) {
	repo := newFakeIssueRepo()
	notifier := &recordingNotifier{}
	service := NewService(repo, &livenessAgentRepo{}, notifier, 3)

	issue := createTestIssue(t, service)
	if issue.Status != string(domainIssue.StatusPending) {
		t.Errorf("new issues start pending, got %s", issue.Status)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != issue.ID {
		t.Errorf("expected one notification for %s, got %v", issue.ID, notifier.notified)
	}
}

func TestCreateIssueRejectsMismatchedPayload(t *testing.T) {
	service := NewService(newFakeIssueRepo(), &livenessAgentRepo{}, nil, 3)

	payload := sequencePayload()
	payload.Type = domainIssue.CardClock // declared clock, carrying booking data
	_, err := service.CreateIssue(context.Background(), &CreateIssueRequest{
		HotelID:  uuid.New(),
		CardType: string(domainIssue.CardSequence),
		Payload:  payload,
	})
	if err == nil {
		t.Error("payload type mismatch must be rejected")
	}
}

func TestUpdateStatusFullLifecycle(t *testing.T) {
	repo := newFakeIssueRepo()
	agents := &livenessAgentRepo{}
	service := NewService(repo, agents, nil, 3)
	ctx := context.Background()
	agentID := uuid.New()

	issue := createTestIssue(t, service)

	for _, status := range []domainIssue.IssueStatus{
		domainIssue.StatusQueued,
		domainIssue.StatusInProgress,
		domainIssue.StatusDone,
	} {
		updated, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{
			Status:  string(status),
			AgentID: &agentID,
		})
		if err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
		if updated.Status != string(status) {
			t.Errorf("expected %s, got %s", status, updated.Status)
		}
	}

	final, _ := service.GetIssue(ctx, issue.ID)
	if final.CompletedAt == nil {
		t.Error("completed_at must be set on done")
	}
	if len(agents.refreshed) == 0 || agents.refreshed[len(agents.refreshed)-1] != agentID {
		t.Error("terminal transition must refresh the acting agent's liveness")
	}
}

func TestUpdateStatusAllowsForwardSkip(t *testing.T) {
	service := NewService(newFakeIssueRepo(), &livenessAgentRepo{}, nil, 3)
	ctx := context.Background()

	issue := createTestIssue(t, service)
	// pending -> done skips queued and in_progress; the chain only moves
	// forward, so the skip is legal and still sets completed_at.
	updated, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{Status: string(domainIssue.StatusDone)})
	if err != nil {
		t.Fatalf("pending -> done failed: %v", err)
	}
	if updated.Status != string(domainIssue.StatusDone) {
		t.Errorf("expected done, got %s", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Error("completed_at must be set on done")
	}
	if updated.AgentID != nil {
		t.Error("agent_id absent from the request must stay unset")
	}
}

func TestUpdateStatusRejectsRegression(t *testing.T) {
	service := NewService(newFakeIssueRepo(), &livenessAgentRepo{}, nil, 3)
	ctx := context.Background()
	agentID := uuid.New()

	issue := createTestIssue(t, service)
	for _, status := range []domainIssue.IssueStatus{
		domainIssue.StatusQueued, domainIssue.StatusInProgress,
	} {
		if _, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{
			Status:  string(status),
			AgentID: &agentID,
		}); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	_, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{Status: string(domainIssue.StatusQueued)})
	if err == nil {
		t.Error("in_progress -> queued must be rejected")
	}

	current, _ := service.GetIssue(ctx, issue.ID)
	if current.Status != string(domainIssue.StatusInProgress) {
		t.Errorf("rejected transition must not change status, got %s", current.Status)
	}
	if current.CompletedAt != nil {
		t.Error("completed_at must stay unset while the issue is open")
	}
}

func TestUpdateStatusDoesNotNullAbsentFields(t *testing.T) {
	service := NewService(newFakeIssueRepo(), &livenessAgentRepo{}, nil, 3)
	ctx := context.Background()
	agentID := uuid.New()

	issue := createTestIssue(t, service)
	if _, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{
		Status:  string(domainIssue.StatusQueued),
		AgentID: &agentID,
	}); err != nil {
		t.Fatalf("queue failed: %v", err)
	}

	// Transition without an agent_id in the body.
	updated, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{
		Status: string(domainIssue.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("in_progress failed: %v", err)
	}
	if updated.AgentID == nil || *updated.AgentID != agentID {
		t.Error("absent agent_id must not null the stored claim")
	}
}

func TestUpdateStatusClaimMutualExclusion(t *testing.T) {
	service := NewService(newFakeIssueRepo(), &livenessAgentRepo{}, nil, 3)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	issue := createTestIssue(t, service)
	if _, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{
		Status:  string(domainIssue.StatusQueued),
		AgentID: &first,
	}); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	_, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{
		Status:  string(domainIssue.StatusInProgress),
		AgentID: &second,
	})
	if err == nil {
		t.Error("a second agent must not take over a claimed issue")
	}
}

func TestRetryIncrementsAndBounds(t *testing.T) {
	repo := newFakeIssueRepo()
	service := NewService(repo, &livenessAgentRepo{}, nil, 2)
	ctx := context.Background()
	agentID := uuid.New()

	issue := createTestIssue(t, service)
	fail := func() {
		t.Helper()
		for _, status := range []domainIssue.IssueStatus{
			domainIssue.StatusQueued, domainIssue.StatusInProgress, domainIssue.StatusFailed,
		} {
			// After a retry the issue is already queued; skip that step.
			if status == domainIssue.StatusQueued {
				if current, _ := service.GetIssue(ctx, issue.ID); current.Status == string(domainIssue.StatusQueued) {
					continue
				}
			}
			if _, err := service.UpdateStatus(ctx, issue.ID, &UpdateStatusRequest{
				Status:  string(status),
				AgentID: &agentID,
			}); err != nil {
				t.Fatalf("transition to %s failed: %v", status, err)
			}
		}
	}

	fail()
	retried, err := service.Retry(ctx, issue.ID)
	if err != nil {
		t.Fatalf("first retry failed: %v", err)
	}
	if retried.RetryCount != 1 || retried.Status != string(domainIssue.StatusQueued) {
		t.Errorf("expected retry_count 1 and queued, got %d %s", retried.RetryCount, retried.Status)
	}

	fail()
	if retried, err = service.Retry(ctx, issue.ID); err != nil {
		t.Fatalf("second retry failed: %v", err)
	}
	if retried.RetryCount != 2 {
		t.Errorf("expected retry_count 2, got %d", retried.RetryCount)
	}

	fail()
	_, err = service.Retry(ctx, issue.ID)
	if !errors.Is(err, domainIssue.ErrRetryLimitReached) {
		t.Errorf("expected ErrRetryLimitReached after %d retries, got %v", 2, err)
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	service := NewService(newFakeIssueRepo(), &livenessAgentRepo{}, nil, 3)
	ctx := context.Background()

	issue := createTestIssue(t, service)
	if _, err := service.Retry(ctx, issue.ID); err == nil {
		t.Error("retrying a pending issue must be rejected")
	}

	// A rejected retry must not requeue the issue or bump the count:
	// pending -> queued is a first attempt, never a retry.
	current, _ := service.GetIssue(ctx, issue.ID)
	if current.Status != string(domainIssue.StatusPending) {
		t.Errorf("rejected retry must not change status, got %s", current.Status)
	}
	if current.RetryCount != 0 {
		t.Errorf("rejected retry must not bump retry_count, got %d", current.RetryCount)
	}
}

func TestClaimNextRefreshesLiveness(t *testing.T) {
	repo := newFakeIssueRepo()
	agents := &livenessAgentRepo{}
	service := NewService(repo, agents, nil, 3)
	ctx := context.Background()
	agentID := uuid.New()

	issue := createTestIssue(t, service)
	hotelID := issue.HotelID

	claimed, err := service.ClaimNext(ctx, agentID, hotelID)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed.ID != issue.ID || claimed.Status != string(domainIssue.StatusQueued) {
		t.Errorf("unexpected claim result: %+v", claimed)
	}
	if len(agents.refreshed) != 1 || agents.refreshed[0] != agentID {
		t.Error("claiming must refresh the agent's liveness")
	}

	if _, err := service.ClaimNext(ctx, uuid.New(), hotelID); !errors.Is(err, domainIssue.ErrNoClaimableIssue) {
		t.Errorf("issue claimed by one agent must not be claimable by another, got %v", err)
	}
}
