// Package status provides feed sync status tracking and persistence.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for sync status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the sync status of a feed
	SaveStatus(ctx context.Context, feedName string, status *SyncStatus) error

	// LoadStatus loads the sync status of a feed.
	// Returns an Idle SyncStatus if nothing was saved yet (first run)
	LoadStatus(ctx context.Context, feedName string) (*SyncStatus, error)

	// LoadAllStatus loads the sync status of every feed that has one
	LoadAllStatus(ctx context.Context) (map[string]*SyncStatus, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence.
// Each feed gets its own directory under basePath.
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// SaveStatus writes the status as JSON through a temp file and an atomic rename
func (f *fileStatusPersistence) SaveStatus(_ context.Context, feedName string, status *SyncStatus) error {
	if feedName == "" || feedName != filepath.Base(feedName) {
		return fmt.Errorf("invalid feed name %q", feedName)
	}

	feedDir := filepath.Join(f.basePath, feedName)
	if err := os.MkdirAll(feedDir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for feed '%s': %w", feedName, err)
	}

	filePath := filepath.Join(feedDir, StatusFileName)

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for feed '%s': %w", feedName, err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for feed '%s': %w", feedName, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for feed '%s': %w", feedName, err)
	}

	return nil
}

// LoadStatus reads the status of a feed
func (f *fileStatusPersistence) LoadStatus(_ context.Context, feedName string) (*SyncStatus, error) {
	if feedName == "" || feedName != filepath.Base(feedName) {
		return nil, fmt.Errorf("invalid feed name %q", feedName)
	}

	filePath := filepath.Join(f.basePath, feedName, StatusFileName)

	// #nosec G304 -- feedName is checked to be a single path element above
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &SyncStatus{Phase: SyncPhaseIdle}, nil
		}
		return nil, fmt.Errorf("failed to read status file for feed '%s': %w", feedName, err)
	}

	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for feed '%s': %w", feedName, err)
	}
	if status.Phase == "" {
		status.Phase = SyncPhaseIdle
	}

	return &status, nil
}

// LoadAllStatus loads the status of every feed directory under basePath.
// Unreadable entries are skipped so one corrupt file does not hide the rest.
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*SyncStatus, error) {
	result := make(map[string]*SyncStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		feedName := entry.Name()
		status, err := f.LoadStatus(ctx, feedName)
		if err != nil {
			continue
		}

		result[feedName] = status
	}

	return result, nil
}
