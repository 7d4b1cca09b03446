// Package histtest provides fixtures for testing components that keep
// their state in history-synced containers.
//
// A Fixture wires a Sync to an in-memory navigation host and a manual
// scheduler, so tests control exactly when debounced captures commit and
// when back/forward notifications are delivered:
//
//	f := histtest.New(t)
//	_, m := methods.Create(f.Ctx, counter, methods.State{"count": 0}, methods.WithKey("c"))
//	m.Actions().Inc()
//	f.Settle()
//	f.Back()
package histtest
