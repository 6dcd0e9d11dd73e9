// Package feed implements the photo feed: synchronizing the ordered post list
// with its images, and submitting new posts.
//
// # Sync
//
// Coordinator.Sync runs one fan-out/fan-in pass:
//
//  1. Query the post collection, newest first.
//  2. Start one image fetch per returned row, all at once unless
//     WithMaxConcurrentFetches caps it.
//  3. Wait for every fetch to finish (the barrier).
//  4. Drop the rows whose image could not be fetched or decoded, recording
//     each as an AssetFailure.
//  5. Assemble the survivors in query order, whatever order the fetches
//     completed in.
//
// A failed query fails the whole sync with ErrorKindQueryFailure and delivers
// no posts. A failed image never fails the sync.
//
// Overlapping calls are coalesced: a Sync issued while another is in flight
// waits for and shares the in-flight result.
//
// SyncAsync never blocks the caller. Its continuation runs on the
// coordinator's Dispatcher, so consumers that keep UI state only ever touch
// it from one goroutine.
//
// # Submit
//
// Submitter.Submit validates the image and the author locally, re-encodes
// the image as JPEG, uploads it and inserts the post record. Validation
// failures never touch the network. Nothing is retried automatically; every
// submission carries an idempotency key a caller can reuse when retrying by hand.
package feed
