package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/stacklok/photofeed/internal/backend"
)

const (
	// DefaultKeyringService is the keyring service the identity is stored under
	DefaultKeyringService = "photofeed"

	keyringUser = "session"
)

// KeyringStore keeps the identity in the OS keyring
type KeyringStore struct {
	service string
}

var _ backend.IdentityStore = (*KeyringStore)(nil)

// NewKeyringStore creates a keyring-backed store. An empty service uses DefaultKeyringService.
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service}
}

// Load returns the stored identity, or nil when nothing is stored
func (s *KeyringStore) Load(_ context.Context) (*backend.Identity, error) {
	secret, err := keyring.Get(s.service, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var identity backend.Identity
	if err := json.Unmarshal([]byte(secret), &identity); err != nil {
		return nil, fmt.Errorf("failed to decode stored identity: %w", err)
	}
	return &identity, nil
}

// Save replaces the stored identity
func (s *KeyringStore) Save(_ context.Context, identity *backend.Identity) error {
	if identity == nil {
		return fmt.Errorf("identity is required")
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := keyring.Set(s.service, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

// Clear removes the stored identity. Clearing an empty store is not an error.
func (s *KeyringStore) Clear(_ context.Context) error {
	if err := keyring.Delete(s.service, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}
