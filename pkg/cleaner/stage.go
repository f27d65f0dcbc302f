// pkg/cleaner/stage.go
package cleaner

import "fmt"

// Stage is a pipeline state. A dataset moves through every stage in order.
type Stage int

const (
	StageRaw Stage = iota
	StageColumnPruned
	StageRowPruned
	StageFieldNormalized
	StageFiltered
	StageClean
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageRaw:
		return "Raw"
	case StageColumnPruned:
		return "ColumnPruned"
	case StageRowPruned:
		return "RowPruned"
	case StageFieldNormalized:
		return "FieldNormalized"
	case StageFiltered:
		return "Filtered"
	case StageClean:
		return "Clean"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// stateMachine tracks the furthest stage reached. Rules of an earlier stage
// run in the current state; advancing walks through each intermediate stage.
type stateMachine struct {
	current     Stage
	transitions []Stage
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StageRaw, transitions: []Stage{StageRaw}}
}

// advance moves to target, visiting every stage in between, and returns the stages entered
func (m *stateMachine) advance(target Stage) []Stage {
	var entered []Stage
	for m.current < target {
		m.current++
		m.transitions = append(m.transitions, m.current)
		entered = append(entered, m.current)
	}
	return entered
}
