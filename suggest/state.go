package suggest

import "github.com/poiesic/parcelsuggest/core"

// ErrorText is shown when the pairing data could not be loaded.
const ErrorText = "could not load property data"

// State is the controller's position in the query life cycle.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateSearching
	StateSettled
	StateCancelled
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateSearching:
		return "searching"
	case StateSettled:
		return "settled"
	case StateCancelled:
		return "cancelled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Snapshot is the observable controller state at one version.
type Snapshot struct {
	Version     uint64
	Query       string
	Suggestions []core.Suggestion
	IsLoading   bool
	Error       string // Empty unless loading failed
	State       State
}
