package pairing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"roomkey/internal/config"
	domainAgent "roomkey/internal/domain/agent"
	domainUser "roomkey/internal/domain/user"
)

// fakePairingRepo implements the repository contract in memory, including
// the all-or-nothing redemption semantics.
type fakePairingRepo struct {
	tokens map[string]*domainAgent.PairingToken
	agents map[string]*domainAgent.Agent // keyed by fingerprint
}

func newFakePairingRepo() *fakePairingRepo {
	return &fakePairingRepo{
		tokens: make(map[string]*domainAgent.PairingToken),
		agents: make(map[string]*domainAgent.Agent),
	}
}

func (f *fakePairingRepo) Create(ctx context.Context, token *domainAgent.PairingToken) error {
	token.ID = uuid.New()
	f.tokens[token.Token] = token
	return nil
}

func (f *fakePairingRepo) GetByToken(ctx context.Context, value string) (*domainAgent.PairingToken, error) {
	token, ok := f.tokens[value]
	if !ok {
		return nil, domainAgent.ErrPairingTokenInvalid
	}
	return token, nil
}

func (f *fakePairingRepo) Redeem(ctx context.Context, value string, now time.Time, newAgent *domainAgent.Agent, newDevice *domainAgent.Device) error {
	token, ok := f.tokens[value]
	if !ok {
		return domainAgent.ErrPairingTokenInvalid
	}
	// Expiry is checked independently of used_at.
	if token.IsExpired(now) {
		return domainAgent.ErrPairingTokenExpired
	}
	if token.IsUsed() {
		return domainAgent.ErrPairingTokenUsed
	}
	if _, taken := f.agents[newAgent.Fingerprint]; taken {
		return domainAgent.ErrFingerprintTaken
	}

	token.UsedAt = &now
	newAgent.ID = uuid.New()
	if newDevice != nil {
		newDevice.ID = uuid.New()
		newDevice.AgentID = newAgent.ID
	}
	f.agents[newAgent.Fingerprint] = newAgent
	return nil
}

type fakeAgentRepo struct{}

func (f *fakeAgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domainAgent.Agent, error) {
	return nil, domainAgent.ErrAgentNotFound
}
func (f *fakeAgentRepo) GetByToken(ctx context.Context, token string) (*domainAgent.Agent, error) {
	return nil, domainAgent.ErrAgentNotFound
}
func (f *fakeAgentRepo) GetByFingerprint(ctx context.Context, hotelID uuid.UUID, fingerprint string) (*domainAgent.Agent, error) {
	return nil, domainAgent.ErrAgentNotFound
}
func (f *fakeAgentRepo) List(ctx context.Context, filter *domainAgent.Filter) ([]*domainAgent.Agent, error) {
	return nil, nil
}
func (f *fakeAgentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domainAgent.AgentStatus) error {
	return nil
}
func (f *fakeAgentRepo) RefreshLiveness(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	return nil
}
func (f *fakeAgentRepo) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domainUser.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domainUser.User) error { return nil }
func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domainUser.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domainUser.ErrUserNotFound
	}
	return u, nil
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domainUser.User, error) {
	return nil, domainUser.ErrUserNotFound
}

func newTestService(repo *fakePairingRepo, users *fakeUserRepo, requireAdmin bool) *Service {
	cfg := &config.Config{}
	cfg.Pairing.TokenTTL = 5 * time.Minute
	cfg.Pairing.RequireAdminRole = requireAdmin
	if users == nil {
		users = &fakeUserRepo{users: map[uuid.UUID]*domainUser.User{}}
	}
	return NewService(repo, &fakeAgentRepo{}, users, cfg)
}

func TestGenerateAndConfirm(t *testing.T) {
	repo := newFakePairingRepo()
	service := newTestService(repo, nil, false)
	ctx := context.Background()

	hotelID := uuid.New()
	gen, err := service.Generate(ctx, uuid.New(), &GenerateRequest{HotelID: hotelID, AgentName: "Front Desk"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if gen.PairingToken == "" {
		t.Fatal("expected a token value")
	}
	if until := time.Until(gen.ExpiresAt); until < 4*time.Minute || until > 6*time.Minute {
		t.Errorf("expected ~5 minute expiry, got %v", until)
	}

	conf, err := service.Confirm(ctx, &ConfirmRequest{
		PairingToken: gen.PairingToken,
		Fingerprint:  "fp-machine-1",
		DeviceInfo:   &DeviceInfo{Model: "RFID-Pro", Serial: "SN-1"},
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if conf.AgentToken == "" || conf.AgentID == uuid.Nil {
		t.Errorf("incomplete credential: %+v", conf)
	}
	if conf.HotelID != hotelID {
		t.Errorf("expected hotel %s, got %s", hotelID, conf.HotelID)
	}
	if conf.DeviceID == nil {
		t.Error("expected device to be created from device info")
	}
	// 32 bytes hex-encoded.
	if len(conf.AgentToken) != 64 {
		t.Errorf("expected 256-bit agent token, got %d chars", len(conf.AgentToken))
	}
}

func TestConfirmTokenIsSingleUse(t *testing.T) {
	repo := newFakePairingRepo()
	service := newTestService(repo, nil, false)
	ctx := context.Background()

	gen, err := service.Generate(ctx, uuid.New(), &GenerateRequest{HotelID: uuid.New(), AgentName: "Desk"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := service.Confirm(ctx, &ConfirmRequest{PairingToken: gen.PairingToken, Fingerprint: "fp-machine-1"}); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}

	_, err = service.Confirm(ctx, &ConfirmRequest{PairingToken: gen.PairingToken, Fingerprint: "fp-machine-2"})
	if !errors.Is(err, domainAgent.ErrPairingTokenUsed) {
		t.Errorf("expected ErrPairingTokenUsed on second redemption, got %v", err)
	}
}

func TestConfirmExpiredToken(t *testing.T) {
	repo := newFakePairingRepo()
	service := newTestService(repo, nil, false)
	ctx := context.Background()

	gen, err := service.Generate(ctx, uuid.New(), &GenerateRequest{HotelID: uuid.New(), AgentName: "Desk"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// Move the clock past the expiry; the token is unused but must still be
	// rejected.
	service.now = func() time.Time { return gen.ExpiresAt.Add(time.Second) }

	_, err = service.Confirm(ctx, &ConfirmRequest{PairingToken: gen.PairingToken, Fingerprint: "fp-machine-1"})
	if !errors.Is(err, domainAgent.ErrPairingTokenExpired) {
		t.Errorf("expected ErrPairingTokenExpired, got %v", err)
	}
}

func TestConfirmUnknownToken(t *testing.T) {
	service := newTestService(newFakePairingRepo(), nil, false)

	_, err := service.Confirm(context.Background(), &ConfirmRequest{PairingToken: "nonexistent", Fingerprint: "fp-machine-1"})
	if !errors.Is(err, domainAgent.ErrPairingTokenInvalid) {
		t.Errorf("expected ErrPairingTokenInvalid, got %v", err)
	}
}

func TestConfirmFingerprintCollision(t *testing.T) {
	repo := newFakePairingRepo()
	service := newTestService(repo, nil, false)
	ctx := context.Background()

	first, err := service.Generate(ctx, uuid.New(), &GenerateRequest{HotelID: uuid.New(), AgentName: "Desk A"})
	if err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	if _, err := service.Confirm(ctx, &ConfirmRequest{PairingToken: first.PairingToken, Fingerprint: "fp-duplicate"}); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}

	second, err := service.Generate(ctx, uuid.New(), &GenerateRequest{HotelID: uuid.New(), AgentName: "Desk B"})
	if err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	_, err = service.Confirm(ctx, &ConfirmRequest{PairingToken: second.PairingToken, Fingerprint: "fp-duplicate"})
	if !errors.Is(err, domainAgent.ErrFingerprintTaken) {
		t.Errorf("expected ErrFingerprintTaken, got %v", err)
	}

	// All-or-nothing: the rejected redemption must not have burned the token.
	token, err := repo.GetByToken(ctx, second.PairingToken)
	if err != nil {
		t.Fatalf("token lookup failed: %v", err)
	}
	if token.IsUsed() {
		t.Error("failed redemption must leave the token unconsumed")
	}
}

func TestGenerateAdminRoleGate(t *testing.T) {
	adminID := uuid.New()
	receptionID := uuid.New()
	users := &fakeUserRepo{users: map[uuid.UUID]*domainUser.User{
		adminID:     {ID: adminID, Role: domainUser.RoleAdmin},
		receptionID: {ID: receptionID, Role: domainUser.RoleReception},
	}}
	service := newTestService(newFakePairingRepo(), users, true)
	ctx := context.Background()
	req := &GenerateRequest{HotelID: uuid.New(), AgentName: "Desk"}

	if _, err := service.Generate(ctx, adminID, req); err != nil {
		t.Errorf("admin must be allowed: %v", err)
	}
	if _, err := service.Generate(ctx, receptionID, req); err == nil {
		t.Error("reception must be rejected when the admin gate is on")
	}
}
