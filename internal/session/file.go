package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/stacklok/photofeed/internal/backend"
)

// FileStore keeps the identity in a JSON file readable only by the owner.
// Every access takes an exclusive lock on a sibling ".lock" file so that
// concurrent invocations do not interleave a login with a logout.
type FileStore struct {
	path string
}

var _ backend.IdentityStore = (*FileStore)(nil)

// NewFileStore creates a file-backed store at path
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("session file path is required")
	}
	return &FileStore{path: filepath.Clean(path)}, nil
}

// Load returns the stored identity, or nil when the file does not exist
func (s *FileStore) Load(ctx context.Context) (*backend.Identity, error) {
	var identity *backend.Identity
	err := s.withLock(ctx, func() error {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to read session file: %w", err)
		}
		identity = &backend.Identity{}
		if err := json.Unmarshal(data, identity); err != nil {
			return fmt.Errorf("failed to decode session file: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// Save replaces the stored identity
func (s *FileStore) Save(ctx context.Context, identity *backend.Identity) error {
	if identity == nil {
		return fmt.Errorf("identity is required")
	}
	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	return s.withLock(ctx, func() error {
		tempPath := s.path + ".tmp"
		if err := os.WriteFile(tempPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write session file: %w", err)
		}
		if err := os.Rename(tempPath, s.path); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("failed to rename session file: %w", err)
		}
		return nil
	})
}

// Clear removes the session file. Clearing an empty store is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	})
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock session file: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock session file: %s is busy", s.path)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	return fn()
}
