package l0

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chanStream is one end of a buffered in-memory byte pipe.
type chanStream struct {
	rx <-chan byte
	tx chan<- byte
}

func streamPair() (*chanStream, *chanStream) {
	a, b := make(chan byte, 256), make(chan byte, 256)
	return &chanStream{rx: a, tx: b}, &chanStream{rx: b, tx: a}
}

func (s *chanStream) Read(p []byte) (int, error) {
	b, ok := <-s.rx
	if !ok {
		return 0, io.EOF
	}
	p[0] = b
	return 1, nil
}

func (s *chanStream) Write(p []byte) (int, error) {
	for _, b := range p {
		s.tx <- b
	}
	return len(p), nil
}

func runConn(ctx context.Context, c *Conn) chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	return errCh
}

func TestConnExchange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sa, sb := streamPair()
	a, b := NewConn(sa), NewConn(sb)
	require.ErrorIs(t, a.WritePacket([]byte{1}), ErrNotReady)

	errA, errB := runConn(ctx, a), runConn(ctx, b)
	require.Eventually(t, func() bool {
		return a.State().IsReady() && b.State().IsReady()
	}, time.Second, 5*time.Millisecond)

	payload := []byte{0xff, 0x20, 1, 2, 0, 1, 2, 3, 4, 5, 6}
	require.NoError(t, a.WritePacket(payload))
	require.NoError(t, a.WritePacket([]byte{7}))
	got, err := b.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, payload, got)
	got, err = b.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{7}, got)

	cancel()
	require.ErrorIs(t, <-errA, context.Canceled)
	require.ErrorIs(t, <-errB, context.Canceled)
	_, err = b.ReadPacket()
	require.ErrorIs(t, err, ErrClosed)
}

func TestConnResyncs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sa, peer := streamPair()
	a := NewConn(sa)
	a.Timeout = 10 * time.Millisecond
	var states []Sync
	a.OnSync = func(s Sync) { states = append(states, s) }
	errCh := runConn(ctx, a)

	// the conn keeps asking for sync until answered
	buf := make([]byte, 1)
	for i := 0; i < 4; i++ {
		_, err := peer.Read(buf)
		require.NoError(t, err)
	}
	_, err := peer.Write([]byte{syncACK, 3})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.State().IsReady() }, time.Second, 5*time.Millisecond)

	cancel()
	<-errCh
	require.Contains(t, states, Ready)
}
