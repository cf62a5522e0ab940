package submission

import "go.uber.org/zap"

// State is a step of the submission lifecycle.
type State int

const (
	StateDraft State = iota
	StateValidating
	StateIDAllocated
	StatePersisted
	StateAudited
	StateComplete
	StateFailed
)

var stateNames = map[State]string{
	StateDraft:       "draft",
	StateValidating:  "validating",
	StateIDAllocated: "id_allocated",
	StatePersisted:   "persisted",
	StateAudited:     "audited",
	StateComplete:    "complete",
	StateFailed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// successor is the only forward move allowed from each state. Failed is reachable from
// every non-terminal state.
var successor = map[State]State{
	StateDraft:       StateValidating,
	StateValidating:  StateIDAllocated,
	StateIDAllocated: StatePersisted,
	StatePersisted:   StateAudited,
	StateAudited:     StateComplete,
}

// CanAdvance reports whether the lifecycle allows moving from s to next.
func (s State) CanAdvance(next State) bool {
	if s == StateComplete || s == StateFailed {
		return false
	}
	return next == StateFailed || successor[s] == next
}

// tracker walks one submission through the lifecycle and logs every move.
type tracker struct {
	state   State
	visited []State
	logger  *zap.Logger
}

func newTracker(logger *zap.Logger) *tracker {
	return &tracker{state: StateDraft, visited: []State{StateDraft}, logger: logger}
}

func (t *tracker) advance(next State, fields ...zap.Field) {
	if !t.state.CanAdvance(next) {
		t.logger.DPanic("illegal submission transition",
			zap.Stringer("from", t.state),
			zap.Stringer("to", next))
		return
	}
	t.logger.Debug("submission transition",
		append(fields, zap.Stringer("from", t.state), zap.Stringer("to", next))...)
	t.state = next
	t.visited = append(t.visited, next)
}

func (t *tracker) fail(err error, fields ...zap.Field) {
	from := t.state
	t.advance(StateFailed, fields...)
	t.logger.Warn("submission failed",
		append(fields, zap.Stringer("at", from), zap.Error(err))...)
}
