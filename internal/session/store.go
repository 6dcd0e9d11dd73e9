package session

import (
	"fmt"
	"time"

	"github.com/adrg/xdg"

	"github.com/stacklok/photofeed/internal/backend"
)

// Kind selects a store implementation
type Kind string

const (
	// KindKeyring stores the session in the OS keyring
	KindKeyring Kind = "keyring"

	// KindFile stores the session in a locked JSON file
	KindFile Kind = "file"
)

const (
	defaultSessionFile = "photofeed/session.json"
	lockRetryDelay     = 50 * time.Millisecond
)

// DefaultFilePath returns the session file location under the XDG state directory
func DefaultFilePath() (string, error) {
	path, err := xdg.StateFile(defaultSessionFile)
	if err != nil {
		return "", fmt.Errorf("failed to resolve session file path: %w", err)
	}
	return path, nil
}

// NewStore creates the store selected by kind. path is only used by KindFile;
// when empty, DefaultFilePath is used. An empty kind selects the keyring.
func NewStore(kind Kind, path string) (backend.IdentityStore, error) {
	switch kind {
	case KindKeyring, "":
		return NewKeyringStore(DefaultKeyringService), nil
	case KindFile:
		if path == "" {
			defaultPath, err := DefaultFilePath()
			if err != nil {
				return nil, err
			}
			path = defaultPath
		}
		return NewFileStore(path)
	default:
		return nil, fmt.Errorf("unsupported session store %q (must be %q or %q)", kind, KindKeyring, KindFile)
	}
}
