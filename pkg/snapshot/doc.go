// Package snapshot holds the value model shared by the state registry and
// the navigation host: deep copies, structural equality, and the history
// payload that is stored in a browser history entry.
//
// A Payload serializes as
//
//	{"tag":"stateHistory","stack":[{"key":"app","state":{"count":2}}]}
//
// and must survive a round trip through the host's storage unchanged, so
// everything in it is plain JSON data: no live references, no functions.
package snapshot
