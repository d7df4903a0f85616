// Package sym defines the small set of glyph markers used to tag structured
// log lines by subsystem. The glyphs are stable across log output so they
// can be grepped or filtered on independently of the free-text message.
package sym

// Lifecycle and subsystem markers.
const (
	Pulse      = "꩜" // scheduler tick / admission activity
	PulseOpen  = "✿" // starting up, recovering state
	PulseClose = "❀" // shutting down, draining
	DB         = "⊔" // store/persistence layer
	Ledger     = "⚖" // resource ledger acquire/release
	Graph      = "⛓" // dependency graph / cascade
	DLQ        = "☠" // dead-letter queue
	Retry      = "↻" // retry scheduling
)
