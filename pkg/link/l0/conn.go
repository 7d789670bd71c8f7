package l0

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

var (
	// ErrNotReady is returned when sending before the handshake completes.
	ErrNotReady = errors.New("link not ready")
	// ErrClosed is returned by ReadPacket after Run returns.
	ErrClosed = errors.New("link closed")
)

// DefaultSyncTimeout is the default handshake and inter-byte timeout.
const DefaultSyncTimeout = 100 * time.Millisecond

// Conn runs the protocol over a byte stream and exchanges frame
// payloads as packets.
type Conn struct {
	Stream  io.ReadWriter
	Timeout time.Duration
	// OnSync is called from Run when the sync state changes.
	OnSync func(Sync)

	seq   Seq
	state Sync
	lock  sync.Mutex

	parser  Parser
	timer   <-chan time.Time
	rxCh    chan []byte
	done    chan struct{}
	closing sync.Once
}

// NewConn creates a Conn over s.
func NewConn(s io.ReadWriter) *Conn {
	return &Conn{
		Stream:  s,
		Timeout: DefaultSyncTimeout,
		seq:     NewSeq(),
		rxCh:    make(chan []byte, 4),
		done:    make(chan struct{}),
	}
}

// State returns the sync state.
func (c *Conn) State() Sync {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// WritePacket sends payload as a frame packet.
func (c *Conn) WritePacket(payload []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.state.IsReady() {
		return ErrNotReady
	}
	pkt := &Packet{Seq: c.seq, Code: CodeFrame, Data: payload}
	if _, err := pkt.WriteTo(c.Stream); err != nil {
		return err
	}
	c.seq = c.seq.Next()
	return nil
}

// ReadPacket returns the payload of the next frame packet.
func (c *Conn) ReadPacket() ([]byte, error) {
	select {
	case b := <-c.rxCh:
		return b, nil
	case <-c.done:
		return nil, ErrClosed
	}
}

// Run drives the protocol until ctx is done or the stream fails.
func (c *Conn) Run(ctx context.Context) error {
	defer c.closing.Do(func() { close(c.done) })
	if err := c.apply(c.parser.Reset()); err != nil {
		return err
	}
	byteCh, errCh := make(chan byte), make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.readLoop(readCtx, byteCh, errCh)
	for {
		var res Result
		select {
		case b := <-byteCh:
			res = c.parser.Feed(b)
		case <-c.timer:
			res = c.parser.Expire()
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := c.apply(res); err != nil {
			return err
		}
	}
}

func (c *Conn) readLoop(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 1)
	for {
		n, err := c.Stream.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		// serial ports return 0 bytes on read timeout
		if n == 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) apply(res Result) error {
	var changed bool
	c.lock.Lock()
	if c.state != res.State {
		c.state, changed = res.State, true
	}
	var err error
	if res.Reply != 0 {
		_, err = c.Stream.Write([]byte{res.Reply, byte(c.seq)})
	}
	c.lock.Unlock()
	if err != nil {
		return err
	}

	switch {
	case res.RestartTimer():
		c.timer = time.After(c.Timeout)
	case res.StopTimer():
		c.timer = nil
	}

	if changed {
		glog.V(1).Infof("l0: %s", res.State)
		if fn := c.OnSync; fn != nil {
			fn(res.State)
		}
	}
	if pkt := res.Packet; pkt != nil {
		if pkt.Code&0x0f != CodeFrame {
			glog.V(2).Infof("l0: ignore packet code %#02x", pkt.Code)
			return nil
		}
		select {
		case c.rxCh <- pkt.Data:
		default:
			glog.Warningf("l0: rx overflow, drop packet %d", pkt.Seq)
		}
	}
	return nil
}
