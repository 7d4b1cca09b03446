package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// History synchronization (SH001-SH099)
	// ============================================

	"SH001": {
		Category:   CategoryHistory,
		Message:    "Key collision",
		Suggestion: "Give sibling containers distinct keys, e.g. with Methods.Keys(index).",
	},
	"SH002": {
		Category: CategoryHistory,
		Message:  "Partial reconciliation",
	},
	"SH003": {
		Category: CategoryRuntime,
		Message:  "Record identity diverged from reducer cell",
	},
	"SH004": {
		Category: CategoryHistory,
		Message:  "Malformed history payload",
	},
	"SH005": {
		Category: CategoryHistory,
		Message:  "Navigation host rejected entry",
	},
	"SH006": {
		Category:   CategoryRuntime,
		Message:    "Dispatch on purged container",
		Suggestion: "Stop calling methods of a container after Unmount when it has no explicit key.",
	},

	// ============================================
	// Configuration (SH100-SH199)
	// ============================================

	"SH100": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create statehistory.json or statehistory.yaml in the project directory.",
	},
	"SH101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
	},
	"SH102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// ============================================
	// Bridge protocol (SH200-SH299)
	// ============================================

	"SH200": {
		Category: CategoryProtocol,
		Message:  "Invalid bridge message",
	},
	"SH201": {
		Category: CategoryProtocol,
		Message:  "Unknown container key",
	},
	"SH202": {
		Category: CategoryProtocol,
		Message:  "Bridge connection closed",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
