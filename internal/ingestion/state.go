package ingestion

// State is a stage of a single source run.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateValidating
	StateEnriching
	StatePersisting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateFetching:   "fetching",
	StateValidating: "validating",
	StateEnriching:  "enriching",
	StatePersisting: "persisting",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// MarshalText renders the state name in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
