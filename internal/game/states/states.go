package states

import (
	"fmt"
	"sync"
	"time"
)

// Phase is the lifecycle state of a room's game.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// CanTransitionTo encodes the allowed lifecycle edges. Running may fall
// back to NotStarted directly when a tick fault tears the loop down.
func (p Phase) CanTransitionTo(target Phase) bool {
	switch p {
	case PhaseNotStarted:
		return target == PhaseRunning
	case PhaseRunning:
		return target == PhaseEnded || target == PhaseNotStarted
	case PhaseEnded:
		return target == PhaseNotStarted
	default:
		return false
	}
}

// Transition records one phase change for debugging.
type Transition struct {
	From      Phase
	To        Phase
	Timestamp time.Time
	Reason    string
}

// Machine guards a room's phase and keeps a bounded transition history.
type Machine struct {
	mu      sync.RWMutex
	current Phase
	history []Transition
}

func NewMachine() *Machine {
	return &Machine{current: PhaseNotStarted}
}

func (m *Machine) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Machine) TransitionTo(target Phase, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.CanTransitionTo(target) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, target)
	}
	m.history = append(m.history, Transition{
		From:      m.current,
		To:        target,
		Timestamp: time.Now(),
		Reason:    reason,
	})
	if len(m.history) > 100 {
		m.history = m.history[len(m.history)-100:]
	}
	m.current = target
	return nil
}

// History returns a copy of the recorded transitions.
func (m *Machine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
