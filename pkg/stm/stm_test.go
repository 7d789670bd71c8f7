package stm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/minut.go/pkg/pt"
)

type state int
type event int

const (
	idle state = iota
	armed
	fired
)

const (
	evArm event = iota + 1
	evFire
	evNoise
)

type recorder struct {
	entries map[state]int
}

func (r *recorder) action(s state) pt.Func {
	return func(t *pt.T) pt.Status {
		switch t.At() {
		case 0:
			r.entries[s]++
			fallthrough
		case 1:
			if t.YieldWhile(1, true) {
				return pt.Yielded
			}
		}
		return t.End()
	}
}

func newTestMachine(t *testing.T) (*Machine[state, event], *recorder, *[]state) {
	r := &recorder{entries: make(map[state]int)}
	var transforms []state
	m, err := New(idle, Table[state, event]{
		idle: {
			Action:     r.action(idle),
			Transition: &Transition[state, event]{Event: evArm, To: armed},
		},
		armed: {
			Action: r.action(armed),
			Transition: &Transition[state, event]{Event: evFire, To: fired, Transform: func(from, to state) {
				transforms = append(transforms, from, to)
			}},
		},
		fired: {Action: r.action(fired)},
	})
	require.NoError(t, err)
	return m, r, &transforms
}

func TestTransitions(t *testing.T) {
	m, r, transforms := newTestMachine(t)
	require.Equal(t, idle, m.Current())
	require.Equal(t, pt.Yielded, m.Run())
	require.Equal(t, 1, r.entries[idle])

	require.NoError(t, m.Post(evArm))
	m.Run()
	require.Equal(t, armed, m.Current())
	require.Zero(t, r.entries[armed])
	m.Run()
	m.Run()
	require.Equal(t, 1, r.entries[armed])

	require.NoError(t, m.Post(evFire))
	m.Run()
	require.Equal(t, fired, m.Current())
	require.Equal(t, []state{armed, fired}, *transforms)
	require.EqualValues(t, 2, m.Transitions())

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Post(evArm))
		m.Run()
	}
	require.Equal(t, fired, m.Current())
	require.Equal(t, 1, r.entries[fired])
}

func TestNonMatchingEvents(t *testing.T) {
	m, r, _ := newTestMachine(t)
	for _, ev := range []event{evFire, evNoise, evFire} {
		require.NoError(t, m.Post(ev))
		m.Run()
		_, pending := m.Pending()
		require.False(t, pending)
		require.Equal(t, idle, m.Current())
	}
	require.Equal(t, 1, r.entries[idle])
	require.Zero(t, m.Transitions())
}

func TestPostRejectsSecondEvent(t *testing.T) {
	m, _, _ := newTestMachine(t)
	require.NoError(t, m.Post(evArm))
	require.ErrorIs(t, m.Post(evNoise), ErrEventPending)
	ev, ok := m.Pending()
	require.True(t, ok)
	require.Equal(t, evArm, ev)
	m.Run()
	require.Equal(t, armed, m.Current())
}

func TestReentryRestartsAction(t *testing.T) {
	var entries int
	m, err := New(idle, Table[state, event]{
		idle: {
			Action: func(t *pt.T) pt.Status {
				if t.At() == 0 {
					entries++
				}
				t.YieldWhile(1, true)
				return pt.Yielded
			},
			Transition: &Transition[state, event]{Event: evArm, To: idle},
		},
	})
	require.NoError(t, err)
	var transitions []event
	m.OnTransition = func(from, to state, ev event) {
		transitions = append(transitions, ev)
	}
	m.Run()
	m.Run()
	require.Equal(t, 1, entries)
	require.NoError(t, m.Post(evArm))
	m.Run()
	m.Run()
	require.Equal(t, 2, entries)
	require.Equal(t, []event{evArm}, transitions)
}

func TestReset(t *testing.T) {
	m, r, _ := newTestMachine(t)
	m.Run()
	require.NoError(t, m.Post(evArm))
	m.Run()
	require.NoError(t, m.Post(evFire))
	m.Reset()
	_, ok := m.Pending()
	require.False(t, ok)
	require.Equal(t, idle, m.Current())
	m.Run()
	require.Equal(t, 2, r.entries[idle])
}

func TestValidation(t *testing.T) {
	testCases := []struct {
		name    string
		initial state
		table   Table[state, event]
	}{
		{"missing initial", armed, Table[state, event]{idle: {}}},
		{"dangling target", idle, Table[state, event]{
			idle: {Transition: &Transition[state, event]{Event: evArm, To: fired}},
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.initial, tc.table)
			require.ErrorIs(t, err, ErrUnknownState)
		})
	}
}

func TestNilAction(t *testing.T) {
	m, err := New(idle, Table[state, event]{idle: {}})
	require.NoError(t, err)
	require.Equal(t, pt.Waiting, m.Run())
}
