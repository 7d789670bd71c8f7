// Package stm is a table driven state machine whose state behaviors are
// protothreads.
package stm

import (
	"errors"
	"fmt"

	"github.com/robotalks/minut.go/pkg/pt"
)

var (
	// ErrEventPending is returned by Post while the event slot is taken.
	ErrEventPending = errors.New("event already pending")
	// ErrUnknownState indicates a state missing from the table.
	ErrUnknownState = errors.New("unknown state")
)

// Transition leaves a state when Event is posted.
type Transition[S, E comparable] struct {
	Event E
	To    S
	// Transform is optional and runs between leaving and entering.
	Transform func(from, to S)
}

// State is one entry of the table. A nil Transition makes it terminal.
type State[S, E comparable] struct {
	Action     pt.Func
	Transition *Transition[S, E]
}

// Table maps state ids to their behavior.
type Table[S, E comparable] map[S]State[S, E]

// Machine runs a Table.
type Machine[S, E comparable] struct {
	// OnTransition is called after each state change.
	OnTransition func(from, to S, event E)

	table       Table[S, E]
	initial     S
	current     S
	action      pt.T
	pending     E
	hasPending  bool
	transitions uint32
}

// New validates table and creates a Machine in the initial state.
func New[S, E comparable](initial S, table Table[S, E]) (*Machine[S, E], error) {
	if _, ok := table[initial]; !ok {
		return nil, fmt.Errorf("%w: initial %v", ErrUnknownState, initial)
	}
	for id, st := range table {
		if tr := st.Transition; tr != nil {
			if _, ok := table[tr.To]; !ok {
				return nil, fmt.Errorf("%w: %v -> %v", ErrUnknownState, id, tr.To)
			}
		}
	}
	return &Machine[S, E]{table: table, initial: initial, current: initial}, nil
}

// Current is the active state.
func (m *Machine[S, E]) Current() S { return m.current }

// Transitions counts state changes since creation.
func (m *Machine[S, E]) Transitions() uint32 { return m.transitions }

// Pending returns the event waiting for the next Run.
func (m *Machine[S, E]) Pending() (ev E, ok bool) {
	return m.pending, m.hasPending
}

// Post stores ev for the next Run. Only one event is held: a second Post
// before Run is rejected and the first event is kept.
func (m *Machine[S, E]) Post(ev E) error {
	if m.hasPending {
		return ErrEventPending
	}
	m.pending, m.hasPending = ev, true
	return nil
}

// Run steps the current action once, then consumes the pending event.
// A matching event moves to the target state whose action starts over
// from its entry on the next Run.
func (m *Machine[S, E]) Run() pt.Status {
	st := m.table[m.current]
	status := pt.Waiting
	if st.Action != nil {
		status = st.Action(&m.action)
	}
	if !m.hasPending {
		return status
	}
	ev := m.pending
	var zero E
	m.pending, m.hasPending = zero, false
	if tr := st.Transition; tr != nil && tr.Event == ev {
		from := m.current
		if tr.Transform != nil {
			tr.Transform(from, tr.To)
		}
		m.current = tr.To
		m.action.Init()
		m.transitions++
		if fn := m.OnTransition; fn != nil {
			fn(from, tr.To, ev)
		}
	}
	return status
}

// Reset returns to the initial state and drops any pending event.
func (m *Machine[S, E]) Reset() {
	var zero E
	m.current = m.initial
	m.action.Init()
	m.pending, m.hasPending = zero, false
}
