// Package session persists the authenticated identity between invocations.
//
// Two stores are available: the OS keyring (KeyringStore) and a JSON file
// guarded by an advisory lock (FileStore) for hosts without a keyring service.
// Both implement backend.IdentityStore.
package session
