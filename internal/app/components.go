package app

import (
	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/feed/refresh"
	"github.com/stacklok/photofeed/internal/service/inmemory"
	"github.com/stacklok/photofeed/internal/status"
)

// Components groups the objects every photofeed command is built from
type Components struct {
	// Client talks to the remote store
	Client backend.Client

	// Coordinator synchronizes the feed
	Coordinator *feed.Coordinator

	// Submitter stores new posts
	Submitter *feed.Submitter

	// Service caches the latest feed for the gateway
	Service *inmemory.Service

	// Refresher keeps Service current in the background
	Refresher *refresh.Refresher

	// Status records the outcome of background refreshes
	Status status.StatusPersistence
}

// Close releases the coordinator's delivery goroutine
func (c *Components) Close() {
	if c != nil && c.Coordinator != nil {
		c.Coordinator.Close()
	}
}
