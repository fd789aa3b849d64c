package bootstrap

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// State is a stage of the backend bootstrap.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StatePortDiscovered
	StateWaitingHealthy
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StatePortDiscovered:
		return "port_discovered"
	case StateWaitingHealthy:
		return "waiting_healthy"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// ErrIllegalTransition is returned when a transition is not allowed from
// the current state.
var ErrIllegalTransition = errors.New("illegal bootstrap state transition")

var transitions = map[State][]State{
	StateNotStarted:     {StateStarting, StateFailed},
	StateStarting:       {StatePortDiscovered, StateFailed},
	StatePortDiscovered: {StateWaitingHealthy, StateFailed},
	StateWaitingHealthy: {StateReady, StateFailed},
}

// stateMachine guards the bootstrap state. done is closed on entering a
// terminal state.
type stateMachine struct {
	mu    sync.RWMutex
	state State
	err   error
	done  chan struct{}
}

func newStateMachine() *stateMachine {
	return &stateMachine{done: make(chan struct{})}
}

func (m *stateMachine) current() (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.err
}

// transition moves to next. cause is kept only when next is StateFailed.
func (m *stateMachine) transition(next State, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(transitions[m.state], next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, next)
	}

	m.state = next
	if next == StateFailed {
		m.err = cause
	}
	if next.Terminal() {
		close(m.done)
	}
	return nil
}
