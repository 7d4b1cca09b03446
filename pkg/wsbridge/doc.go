// Package wsbridge connects a browser tab to a server-side state history
// engine over a WebSocket.
//
// Each connection gets its own event loop, registry and Sync. The browser
// owns the real history stack: the server asks it to push or replace
// entries and the browser reports popstate events back. Containers are
// mounted, dispatched to and unmounted remotely, and every change to a
// container's record is echoed back as a render message.
//
// Message flow, client to server:
//
//	hello     {state}          current history.state on connect
//	popstate  {state}          history.state after back/forward
//	mount     {key, initial}   create a container
//	dispatch  {key, partial}   merge into a container's record
//	reset     {key}            restore initial state
//	unmount   {key}            tear a container down
//
// Server to client:
//
//	push      {state}          history.pushState(state)
//	replace   {state}          history.replaceState(state)
//	render    {key, version, state}
//	error     {code, message}
package wsbridge
