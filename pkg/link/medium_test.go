package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/fifo"
)

type pipeRW struct {
	rx, tx chan []byte
}

func pipePair() (*pipeRW, *pipeRW) {
	a, b := make(chan []byte, 16), make(chan []byte, 16)
	return &pipeRW{rx: a, tx: b}, &pipeRW{rx: b, tx: a}
}

func (p *pipeRW) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.rx
	if !ok {
		return nil, errors.New("closed")
	}
	return pkt, nil
}

func (p *pipeRW) WritePacket(pkt []byte) error {
	p.tx <- pkt
	return nil
}

func TestMediumSendBusy(t *testing.T) {
	m := NewMediumSize(&pipeRW{}, 1, 1)
	require.NoError(t, m.Send(bus.Frame{}))
	assert.ErrorIs(t, m.Send(bus.Frame{}), bus.ErrBusy)
	_, ok := m.Receive()
	assert.False(t, ok)
}

func TestMediumExchange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rw, peer := pipePair()
	m := NewMedium(rw)
	go m.Run(ctx)

	fr := bus.NewFrame(bus.Self, 0x21, 0x04, 1, 2)
	fr.TransactionID = 7
	require.NoError(t, m.Send(fr))
	var pkt []byte
	select {
	case pkt = <-peer.rx:
	case <-time.After(time.Second):
		require.Fail(t, "nothing sent")
	}
	var got bus.Frame
	require.NoError(t, got.UnmarshalBinary(pkt))
	assert.Equal(t, fr, got)

	peer.tx <- []byte{1, 2, 3}
	reply, _ := fr.Reply().MarshalBinary()
	peer.tx <- reply
	require.Eventually(t, func() bool {
		got, ok := m.Receive()
		return ok && got == fr.Reply()
	}, time.Second, 5*time.Millisecond)
	st := m.Stats()
	assert.Equal(t, uint32(1), st.Sent)
	assert.Equal(t, uint32(1), st.Received)
	assert.Equal(t, uint32(1), st.Malformed)
}

// Two dispatchers linked back to back: a frame for the remote node is
// delivered there and a frame for a third node is not.
func TestLinkedDispatchers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rwA, rwB := pipePair()
	ma, mb := NewMedium(rwA), NewMedium(rwB)
	go ma.Run(ctx)
	go mb.Run(ctx)
	da := bus.New(bus.Config{Address: 0x20}, ma)
	db := bus.New(bus.Config{Address: 0x21}, mb)

	tx := &bus.Interface{Channel: 1, Queue: fifo.MustNew[bus.Frame](1)}
	require.NoError(t, da.Register(tx))
	rx := &bus.Interface{Channel: 1, Mask: bus.MaskOf(0x04), Queue: fifo.MustNew[bus.Frame](4)}
	require.NoError(t, db.Register(rx))

	require.NoError(t, da.Lock(tx))
	require.NoError(t, da.Transmit(tx, bus.NewFrame(bus.Self, 0x22, 0x04)))
	require.NoError(t, da.Transmit(tx, bus.NewFrame(bus.Self, 0x21, 0x04, 9)))
	require.NoError(t, da.Unlock(tx))

	var got bus.Frame
	require.Eventually(t, func() bool {
		db.Run()
		return rx.Queue.Get(&got) == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, bus.Address(0x20), got.Origin)
	assert.Equal(t, byte(9), got.Argv[0])
	require.Eventually(t, func() bool {
		db.Run()
		return db.Stats().Foreign == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, rx.Queue.Len())
}

func TestOpenUnknownScheme(t *testing.T) {
	_, err := Open("foo://bar", 0x20)
	assert.Error(t, err)
	_, err = Open("serial:///dev/null?baud=x", 0x20)
	assert.Error(t, err)
}
