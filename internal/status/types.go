package status

import "time"

// SyncPhase represents the current phase of a feed synchronization
type SyncPhase string

const (
	// SyncPhaseIdle means no sync has run yet
	SyncPhaseIdle SyncPhase = "Idle"

	// SyncPhaseSyncing means a sync is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last sync resolved every post
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhasePartial means the last sync succeeded but dropped posts whose asset failed
	SyncPhasePartial SyncPhase = "Partial"

	// SyncPhaseFailed means the last sync failed as a whole
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncStatus represents the persisted state of a feed's background refresh
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of failed attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful sync
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// PostCount is the number of posts delivered by the last successful sync
	PostCount int `json:"postCount,omitempty"`

	// FailedAssetCount is the number of posts dropped by the last successful sync
	FailedAssetCount int `json:"failedAssetCount,omitempty"`

	// RefreshInterval is the configured refresh interval (e.g. "5m")
	RefreshInterval string `json:"refreshInterval,omitempty"`
}
