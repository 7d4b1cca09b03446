// Package navigation defines the boundary between the state history engine
// and the host's back/forward history.
//
// A Host stores opaque byte payloads: Push appends an entry (dropping any
// forward entries), Replace overwrites the current one, and subscribers are
// told which payload became current after a back/forward move. The engine
// only ever stores data that round-trips through JSON, mirroring what a
// browser's history.pushState accepts.
//
// Memory is an in-process Host with a cursor, used by tests, by the replay
// CLI, and by servers that keep history per connection.
package navigation
