package tracer

// State is a step of the tracer lifecycle. The machine runs once.
type State int32

const (
	Idle State = iota
	Armed
	Active
	Draining
	Reported
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Reported:
		return "reported"
	case Closed:
		return "closed"
	}
	return "unknown"
}
