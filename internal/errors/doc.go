// Package errors provides coded, structured errors for statehistory.
//
// Every recoverable condition the synchronization engine can hit has a
// registered code. The engine reports them on its diagnostic channel; the
// CLI formats them for the terminal.
//
// # Error Codes
//
//	SH001  key collision between mounted containers
//	SH002  reconciliation left stack entries unmatched
//	SH003  record identity diverged from the reducer cell (fatal)
//	SH004  navigation payload is not a state history payload
//	SH005  navigation host rejected a push or replace
//	SH006  dispatch on a purged container
//	SH1xx  configuration
//	SH2xx  browser bridge protocol
//
// # Usage
//
//	err := errors.New("SH001").
//	    WithDetail(fmt.Sprintf("key %q is held by a mounted container", key)).
//	    WithSuggestion("Derive child keys with Methods.Keys")
//
//	fmt.Println(err.Format())
package errors
