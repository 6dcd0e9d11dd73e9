// Package refresh keeps a feed up to date in the background.
//
// A Refresher syncs once on Start and then again after every interval, with
// a random jitter so that many clients do not hit the backend in lockstep.
// After a failed sync the next attempt follows an exponential backoff instead
// of the regular interval, capped at a few intervals. Each outcome is
// persisted as a status.SyncStatus and handed to an optional sink.
//
//	refresher := refresh.New(coordinator, status.NewFileStatusPersistence(dir),
//	    refresh.WithInterval(5*time.Minute),
//	    refresh.WithSink(func(result *feed.Result, err error) { ... }),
//	)
//	go refresher.Start(ctx)
//	defer refresher.Stop()
package refresh
