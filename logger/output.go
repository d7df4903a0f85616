package logger

// Output controls what categories of information are shown at each verbosity
// level. Unlike log levels (which filter by severity), output categories
// control WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: submit/get/cancel results, errors
//	1 (-v)      - + admission cycles, job lifecycle transitions, store opens
//	2 (-vv)     - + ledger acquire/release, timing, config loaded
//	3 (-vvv)    - + dependency graph walks, cascade propagation, internal flow
//	4 (-vvvv)   - + SQL queries, full job payload dumps

// OutputCategory defines a category of output that can be enabled/disabled.
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Submit/get/list/cancel output
	OutputErrors                           // Errors with hints
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputAdmission   // Admission cycle summaries (dequeued, dispatched, deferred)
	OutputLifecycle   // Job status transitions (queued -> running -> terminal)
	OutputStartup     // Startup banners, recovered orphans, config summary

	// Level 2 (-vv) - Detailed
	OutputLedger // Resource ledger acquire/release
	OutputTiming // Operation timing (e.g. "admission cycle took 4ms")
	OutputConfig // Config values loaded/applied
	OutputDBStats // Store connection/pool stats

	// Level 3 (-vvv) - Debug
	OutputGraph        // Dependency graph walks and cascade propagation
	OutputInternalFlow // Internal operation flow (function entry/exit)
	OutputRetry        // Retry/backoff scheduling decisions

	// Level 4 (-vvvv) - Full dump
	OutputSQLQueries // Full SQL statements executed against the store
	OutputPayloadDump // Full job payload/result contents
)

// categoryLevels maps each output category to its minimum verbosity level.
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputAdmission: VerbosityInfo,
	OutputLifecycle: VerbosityInfo,
	OutputStartup:   VerbosityInfo,

	OutputLedger:  VerbosityDebug,
	OutputTiming:  VerbosityDebug,
	OutputConfig:  VerbosityDebug,
	OutputDBStats: VerbosityDebug,

	OutputGraph:        VerbosityTrace,
	OutputInternalFlow: VerbosityTrace,
	OutputRetry:        VerbosityTrace,

	OutputSQLQueries:  VerbosityAll,
	OutputPayloadDump: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity.
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories.
var categoryNames = map[OutputCategory]string{
	OutputResults:     "results",
	OutputErrors:      "errors",
	OutputUserStatus:  "status",
	OutputAdmission:   "admission",
	OutputLifecycle:   "lifecycle",
	OutputStartup:     "startup",
	OutputLedger:      "ledger",
	OutputTiming:      "timing",
	OutputConfig:      "config",
	OutputDBStats:     "db-stats",
	OutputGraph:       "graph",
	OutputInternalFlow: "internal-flow",
	OutputRetry:       "retry",
	OutputSQLQueries:  "sql-queries",
	OutputPayloadDump: "payload-dump",
}

// CategoryName returns the human-readable name for an output category.
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity.
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level.
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, admission cycles, lifecycle transitions"
	case VerbosityDebug:
		return "above + ledger acquire/release, timing, config"
	case VerbosityTrace:
		return "above + graph walks, cascade propagation, retry decisions"
	case VerbosityAll:
		return "above + SQL queries, full payload dumps"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}

// Timing helpers

// SlowThresholdMS is the threshold in milliseconds above which timing is always shown.
const SlowThresholdMS = 100

// ShouldShowTiming returns true if timing info should be displayed.
// Shows if: verbosity >= 2 (-vv) OR operation exceeded slow threshold.
func ShouldShowTiming(verbosity int, durationMS int64) bool {
	if durationMS >= SlowThresholdMS {
		return true
	}
	return ShouldOutput(verbosity, OutputTiming)
}

// ShouldShowTimingAlways returns true if timing should always be shown (slow operation).
func ShouldShowTimingAlways(durationMS int64) bool {
	return durationMS >= SlowThresholdMS
}
