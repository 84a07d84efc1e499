package model

// Chrome trace event phases.
const (
	PhaseComplete = "X"
	PhaseMetadata = "M"
)

// CompleteEvent is a "X" event in the Chrome trace event format.
// Timestamps are microseconds.
type CompleteEvent struct {
	Phase    string `json:"ph"`
	PID      int    `json:"pid"`
	TID      uint64 `json:"tid"`
	Name     string `json:"name"`
	TS       uint64 `json:"ts"`
	Duration uint64 `json:"dur"`
}

// MetadataEvent carries process level information such as its name.
type MetadataEvent struct {
	Phase string            `json:"ph"`
	Name  string            `json:"name"`
	PID   int               `json:"pid"`
	TID   uint64            `json:"tid"`
	Args  map[string]string `json:"args"`
}

const nsPerUs = 1000

// NewCompleteEvent converts an operation into a complete event using
// truncating integer division for both ts and dur.
func NewCompleteEvent(pid int, tid uint64, op Operation) CompleteEvent {
	return CompleteEvent{
		Phase:    PhaseComplete,
		PID:      pid,
		TID:      tid,
		Name:     op.Name,
		TS:       op.Started / nsPerUs,
		Duration: op.Duration() / nsPerUs,
	}
}

// NewProcessNameEvent builds the metadata record naming the traced process.
func NewProcessNameEvent(pid int, executable string) MetadataEvent {
	return MetadataEvent{
		Phase: PhaseMetadata,
		Name:  "process_name",
		PID:   pid,
		TID:   0,
		Args:  map[string]string{"name": executable},
	}
}
