package backend

import "context"

// Client is the capability surface of the remote store
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/stacklok/photofeed/internal/backend Client,IdentityStore
type Client interface {
	// QueryCollection returns every row of a collection ordered by sortField
	QueryCollection(ctx context.Context, name, sortField string, descending bool) ([]RawRecord, error)

	// FetchAsset downloads the binary payload behind ref
	FetchAsset(ctx context.Context, ref AssetRef) ([]byte, error)

	// CurrentIdentity returns the stored session, or nil when unauthenticated
	CurrentIdentity(ctx context.Context) (*Identity, error)

	// UploadFile stores a binary payload and returns a reference to it
	UploadFile(
		ctx context.Context, identity *Identity, name, contentType string, data []byte, requestID string,
	) (AssetRef, error)

	// InsertRecord creates a record and returns its identifier
	InsertRecord(ctx context.Context, identity *Identity, collection string, fields Fields, requestID string) (string, error)

	// LogIn authenticates and stores the resulting session
	LogIn(ctx context.Context, username, password string) (*Identity, error)

	// LogOut ends the current session
	LogOut(ctx context.Context) error
}

// IdentityStore persists the authenticated identity between invocations
type IdentityStore interface {
	// Load returns the stored identity, or nil when none is stored
	Load(ctx context.Context) (*Identity, error)

	// Save replaces the stored identity
	Save(ctx context.Context, identity *Identity) error

	// Clear removes the stored identity. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
