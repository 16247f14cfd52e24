package agentd

import (
	"testing"

	"github.com/google/uuid"
)

func TestLoadIdentityIsStable(t *testing.T) {
	store := NewStore(t.TempDir())

	first, err := store.LoadIdentity()
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if first.Fingerprint == "" {
		t.Fatal("expected a generated fingerprint")
	}
	// 16 random bytes hex-encoded.
	if len(first.Fingerprint) != 32 {
		t.Errorf("expected 128-bit fingerprint, got %d chars", len(first.Fingerprint))
	}

	second, err := store.LoadIdentity()
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if second.Fingerprint != first.Fingerprint {
		t.Error("fingerprint must survive restarts")
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	creds, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if creds != nil {
		t.Fatal("expected no credentials before pairing")
	}

	deviceID := uuid.New()
	saved := &Credentials{
		AgentID:    uuid.New(),
		AgentToken: "secret-token",
		HotelID:    uuid.New(),
		DeviceID:   &deviceID,
	}
	if err := store.SaveCredentials(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected credentials after save")
	}
	if loaded.AgentID != saved.AgentID || loaded.AgentToken != saved.AgentToken ||
		loaded.HotelID != saved.HotelID || *loaded.DeviceID != deviceID {
		t.Errorf("credentials changed across the round trip: %+v", loaded)
	}
}
