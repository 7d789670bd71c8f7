package link

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/bus"
	fx "github.com/robotalks/minut.go/pkg/framework"
)

// Default channel sizes.
const (
	DefaultTxSize = 8
	DefaultRxSize = 8
)

// Stats counts Medium traffic.
type Stats struct {
	Sent      uint32
	Received  uint32
	Malformed uint32
	Overflow  uint32
	Errors    uint32
}

// Medium implements bus.Medium over a PacketReadWriter.
//
// Send and Receive never block: frames are handed to and taken from
// buffered channels served by Run.
type Medium struct {
	RW PacketReadWriter

	txCh chan bus.Frame
	rxCh chan bus.Frame

	sent, received, malformed, overflow, errs atomic.Uint32
}

// NewMedium creates a Medium with default channel sizes.
func NewMedium(rw PacketReadWriter) *Medium {
	return NewMediumSize(rw, DefaultTxSize, DefaultRxSize)
}

// NewMediumSize creates a Medium with the given channel sizes.
func NewMediumSize(rw PacketReadWriter, txSize, rxSize int) *Medium {
	return &Medium{
		RW:   rw,
		txCh: make(chan bus.Frame, txSize),
		rxCh: make(chan bus.Frame, rxSize),
	}
}

// Send implements bus.Medium.
func (m *Medium) Send(fr bus.Frame) error {
	select {
	case m.txCh <- fr:
		return nil
	default:
		return bus.ErrBusy
	}
}

// Receive implements bus.Medium.
func (m *Medium) Receive() (fr bus.Frame, ok bool) {
	select {
	case fr = <-m.rxCh:
		return fr, true
	default:
		return fr, false
	}
}

// Stats returns the counters.
func (m *Medium) Stats() Stats {
	return Stats{
		Sent:      m.sent.Load(),
		Received:  m.received.Load(),
		Malformed: m.malformed.Load(),
		Overflow:  m.overflow.Load(),
		Errors:    m.errs.Load(),
	}
}

// Run implements framework.Runnable. It also runs the underlying
// transport when it is a Runnable itself.
func (m *Medium) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)
	if r, ok := m.RW.(fx.Runnable); ok {
		go func() { errCh <- r.Run(ctx) }()
	}
	go func() { errCh <- m.readLoop(ctx) }()
	for {
		select {
		case fr := <-m.txCh:
			m.write(fr)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Medium) write(fr bus.Frame) {
	data, _ := fr.MarshalBinary()
	if err := m.RW.WritePacket(data); err != nil {
		m.errs.Add(1)
		glog.Warningf("link: send %s: %v", fr, err)
		return
	}
	m.sent.Add(1)
	glog.V(2).Infof("link: TX %s", fr)
}

func (m *Medium) readLoop(ctx context.Context) error {
	for {
		data, err := m.RW.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF {
				glog.Info("link: closed by peer")
			}
			return err
		}
		var fr bus.Frame
		if err := fr.UnmarshalBinary(data); err != nil {
			m.malformed.Add(1)
			glog.Warningf("link: drop %d bytes: %v", len(data), err)
			continue
		}
		glog.V(2).Infof("link: RX %s", fr)
		select {
		case m.rxCh <- fr:
			m.received.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		default:
			m.overflow.Add(1)
			glog.Warningf("link: rx overflow, drop %s", fr)
		}
	}
}
