package agentd

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	identityFile    = "identity.json"
	credentialsFile = "credentials.json"
)

// Identity is the stable per-installation fingerprint. It is generated once
// and persisted, so re-pairing the same machine reports the same
// fingerprint and is rejected by the server.
type Identity struct {
	Fingerprint string `json:"fingerprint"`
	Hostname    string `json:"hostname"`
}

// Credentials is the pairing outcome persisted after a successful confirm.
type Credentials struct {
	AgentID    uuid.UUID  `json:"agentId"`
	AgentToken string     `json:"agentToken"`
	HotelID    uuid.UUID  `json:"hotelId"`
	DeviceID   *uuid.UUID `json:"deviceId,omitempty"`
}

// Store persists the agent identity and credentials under a state dir.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// LoadIdentity returns the persisted identity, creating a fresh one on
// first run.
func (s *Store) LoadIdentity() (*Identity, error) {
	path := filepath.Join(s.dir, identityFile)

	raw, err := os.ReadFile(path)
	if err == nil {
		var id Identity
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, fmt.Errorf("failed to parse identity file: %w", err)
		}
		if id.Fingerprint != "" {
			return &id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}

	hostname, _ := os.Hostname()
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate fingerprint: %w", err)
	}

	id := &Identity{
		Fingerprint: hex.EncodeToString(buf),
		Hostname:    hostname,
	}
	if err := s.write(identityFile, id); err != nil {
		return nil, err
	}
	return id, nil
}

// LoadCredentials returns the persisted pairing credentials, or nil when
// the agent has not been paired yet.
func (s *Store) LoadCredentials() (*Credentials, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, credentialsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if creds.AgentToken == "" {
		return nil, nil
	}
	return &creds, nil
}

// SaveCredentials persists the pairing outcome. The file holds the agent's
// long-lived secret, so it is written owner-only.
func (s *Store) SaveCredentials(creds *Credentials) error {
	return s.write(credentialsFile, creds)
}

func (s *Store) write(name string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
