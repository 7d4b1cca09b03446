// Package methods keeps per-component local state in sync with the host's
// back/forward history.
//
// A component creates a container with Create, passing a factory that
// builds its actions around a Dispatch function:
//
//	type counterActions struct{ Inc func() }
//
//	state, m := methods.Create(ctx, func(dispatch methods.Dispatch, s *methods.Record) counterActions {
//	    return counterActions{
//	        Inc: func() { dispatch(methods.State{"count": s.Int("count") + 1}) },
//	    }
//	}, methods.State{"count": 0}, methods.WithKey("app.counter"))
//
//	m.Actions().Inc()
//	child := m.Keys(i) // child.ChildKey == "app.counter.<i>"
//
// The Record returned by Create keeps the same identity for the container's
// whole lifetime; Dispatch merges fields into it in place and bumps its
// version.
//
// # History
//
// Every non-empty dispatch arms a debounced capture. When the debounce
// expires the Sync walks its Registry, snapshots every container and pushes
// the resulting stack to the navigation Host. When the user moves back or
// forward, the Host hands the stored stack back and the Sync reconciles it
// against the live registry, matching entries by key.
//
// Containers with an explicit key survive unmount in a detached state, so
// when the same key is created again (typically after navigating forward)
// the new container starts from the retained state. Containers without a
// key are purged on unmount and cannot be restored.
//
// # Diagnostics
//
// Key collisions, partial reconciliations, malformed payloads and host
// failures never interrupt the UI. They are logged and delivered on
// Sync.Diagnostics.
package methods
