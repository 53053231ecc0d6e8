package attracker

import (
	"context"
	"time"

	"github.com/atinternet/go-tracker/internal/sender"
)

// DrainResult summarizes one pass over the offline store.
type DrainResult = sender.DrainResult

// Offline gives access to the hits kept in offline storage. Obtain it with Tracker.Offline.
//
// Count and the Delete methods return -1 if storage could not be read.
type Offline struct {
	tracker *Tracker
}

// Dispatch sends every stored hit, oldest first, and returns when done. It stops at the first
// hit that cannot be delivered.
func (o *Offline) Dispatch() DrainResult {
	return o.DispatchContext(context.Background())
}

// DispatchContext is like Dispatch, but stops early when ctx is done.
func (o *Offline) DispatchContext(ctx context.Context) DrainResult {
	return o.tracker.sender.Drain(ctx)
}

// Count returns the number of stored hits.
func (o *Offline) Count() int {
	return o.tracker.sender.Store().Count()
}

// Get returns the stored hits, oldest first.
func (o *Offline) Get() []Hit {
	return o.tracker.sender.Store().Get()
}

// Delete removes every stored hit and returns how many were removed.
func (o *Offline) Delete() int {
	return o.tracker.sender.Store().Delete()
}

// DeleteOlderThan removes the hits created before t.
func (o *Offline) DeleteOlderThan(t time.Time) int {
	return o.tracker.sender.Store().DeleteOlderThan(t)
}

// DeleteOlderThanDays removes the hits created more than days days ago.
func (o *Offline) DeleteOlderThanDays(days int) int {
	return o.tracker.sender.Store().DeleteOlderThanDays(days)
}

// First returns the oldest stored hit.
func (o *Offline) First() (Hit, bool) {
	return o.tracker.sender.Store().First()
}

// Last returns the most recently stored hit.
func (o *Offline) Last() (Hit, bool) {
	return o.tracker.sender.Store().Last()
}
