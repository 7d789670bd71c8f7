package bus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/pt"
)

func TestSenderHoldsLockUntilAccepted(t *testing.T) {
	m := &testMedium{busy: 3}
	d := New(Config{}, m)
	a, b := newIface(1, 1), newIface(2, 1)
	require.NoError(t, d.Register(a))
	require.NoError(t, d.Register(b))

	out := fifo.MustNew[Frame](2)
	s := NewSender(d, a, out)
	require.Equal(t, pt.Waiting, s.Step())
	require.Nil(t, d.LockOwner())

	require.NoError(t, out.Put(NewFrame(Self, 9, 1, 1)))
	require.NoError(t, out.Put(NewFrame(Self, 9, 1, 2)))
	for i := 0; i < 3; i++ {
		s.Step()
		require.Same(t, a, d.LockOwner())
		require.ErrorIs(t, d.Lock(b), ErrLocked)
	}
	s.Step()
	require.Len(t, m.sent, 1)
	require.Nil(t, d.LockOwner())
	s.Step()
	require.Len(t, m.sent, 2)
	require.Equal(t, byte(2), m.sent[1].Argv[0])
}

func TestSenderWaitsForLock(t *testing.T) {
	m := &testMedium{}
	d := New(Config{}, m)
	a, b := newIface(1, 1), newIface(2, 1)
	require.NoError(t, d.Register(a))
	require.NoError(t, d.Register(b))
	require.NoError(t, d.Lock(b))

	out := fifo.MustNew[Frame](1)
	require.NoError(t, out.Put(NewFrame(Self, 9, 1)))
	s := NewSender(d, a, out)
	for i := 0; i < 5; i++ {
		s.Step()
	}
	require.Empty(t, m.sent)
	require.NoError(t, d.Unlock(b))
	s.Step()
	require.Len(t, m.sent, 1)
}

func TestSenderRelocksAfterLease(t *testing.T) {
	m := &testMedium{busy: 10}
	d := New(Config{LockLease: 2}, m)
	a := newIface(1, 1)
	require.NoError(t, d.Register(a))
	out := fifo.MustNew[Frame](1)
	require.NoError(t, out.Put(NewFrame(Self, 9, 1)))
	s := NewSender(d, a, out)
	for i := 0; i < 3; i++ {
		s.Step()
		d.Run()
	}
	require.Nil(t, d.LockOwner())
	require.EqualValues(t, 1, d.Stats().LeaseExpired)
	m.busy = 0
	s.Step()
	s.Step()
	require.Len(t, m.sent, 1)
	require.Zero(t, s.Failed())
}

func TestSenderDiscardsOnFatalError(t *testing.T) {
	d := New(Config{}, nil)
	a := newIface(1, 1)
	require.NoError(t, d.Register(a))
	out := fifo.MustNew[Frame](1)
	require.NoError(t, out.Put(NewFrame(Self, 9, 1)))
	s := NewSender(d, a, out)
	require.Equal(t, pt.Exited, s.Step())
	require.Zero(t, s.At())
	require.EqualValues(t, 1, s.Failed())
	require.Nil(t, d.LockOwner())
	require.Zero(t, out.Len())
}

type strictPort struct {
	*Dispatcher
	unlockErr error
}

func (p *strictPort) Unlock(iface *Interface) error {
	if p.unlockErr != nil {
		return p.unlockErr
	}
	return p.Dispatcher.Unlock(iface)
}

func TestSenderCountsUnlockFailures(t *testing.T) {
	m := &testMedium{}
	p := &strictPort{Dispatcher: New(Config{}, m), unlockErr: ErrNotOwner}
	a := newIface(1, 1)
	require.NoError(t, p.Register(a))
	out := fifo.MustNew[Frame](2)
	require.NoError(t, out.Put(NewFrame(Self, 9, 1)))
	s := NewSender(p, a, out)
	require.Equal(t, pt.Waiting, s.Step())
	require.Len(t, m.sent, 1)
	require.EqualValues(t, 1, s.UnlockFailures())

	p.unlockErr = nil
	require.NoError(t, out.Put(NewFrame(Self, 9, 1)))
	s.Step()
	require.Len(t, m.sent, 2)
	require.EqualValues(t, 1, s.UnlockFailures())
	require.Nil(t, p.LockOwner())
}
