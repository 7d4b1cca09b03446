// Package loop provides the scheduling contract the state history engine
// runs on.
//
// All container mutation happens on one cooperative event loop. The engine
// needs two things from it: a cancelable delay (AfterFunc) and a way to run
// a callback once the current burst of work has settled (Post). Timer
// callbacks are always delivered through Post, so every callback executes
// on the loop and no callback ever races another.
//
// EventLoop is the production implementation: a goroutine draining a
// buffered queue, with panic recovery around each callback. Manual is a
// deterministic implementation with a virtual clock for tests and for the
// replay CLI.
package loop
