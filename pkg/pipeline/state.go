package pipeline

import (
	"fmt"

	"github.com/taigrr/papercraft/internal/logger"
	"go.uber.org/zap"
)

// State is a pipeline phase.
type State int

const (
	Idle State = iota
	Exporting
	ExternalToolRunning
	Importing
	Committing
	Done
	Failed
)

var stateNames = [...]string{
	Idle:                "idle",
	Exporting:           "exporting",
	ExternalToolRunning: "running",
	Importing:           "importing",
	Committing:          "committing",
	Done:                "done",
	Failed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// ProgressFunc receives every state transition with a short message.
// It is called synchronously from the pipeline goroutine and must not
// block for long.
type ProgressFunc func(state State, message string)

// machine tracks one run through the states.
type machine struct {
	op       string
	state    State
	progress ProgressFunc
	history  []State
}

func newMachine(op string, progress ProgressFunc) *machine {
	return &machine{op: op, state: Idle, progress: progress, history: []State{Idle}}
}

func (m *machine) enter(s State, msg string) {
	m.state = s
	m.history = append(m.history, s)
	logger.Debug("pipeline state",
		zap.String("op", m.op),
		zap.Stringer("state", s),
		zap.String("msg", msg))
	if m.progress != nil {
		m.progress(s, msg)
	}
}

// fail moves to Failed and returns err for the caller to propagate.
func (m *machine) fail(err error) error {
	logger.Warn("pipeline failed",
		zap.String("op", m.op),
		zap.Stringer("during", m.state),
		zap.Error(err))
	m.enter(Failed, err.Error())
	return err
}
