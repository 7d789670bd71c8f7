// Package led blinks the alive led with a pattern set over the bus.
package led

import (
	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/clock"
	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/frames"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/hal"
	"github.com/robotalks/minut.go/pkg/pt"
)

// Channel is the bus address of the led module.
const Channel bus.Address = 5

// Unit is the resolution of on and off durations.
const Unit = 10 * clock.Millisecond

// Led is the alive led module.
type Led struct {
	port  bus.Port
	clk   clock.Source
	pin   hal.OutputPin
	iface bus.Interface

	in  *fifo.Queue[bus.Frame]
	out *fifo.Queue[bus.Frame]

	handler pt.Proc
	blink   pt.Proc
	sender  *bus.Sender
	inFr    bus.Frame

	on, off byte
	next    clock.Time
}

// New creates a Led driving pin.
func New(port bus.Port, clk clock.Source, pin hal.OutputPin) *Led {
	l := &Led{
		port: port,
		clk:  clk,
		pin:  pin,
		in:   fifo.MustNew[bus.Frame](2),
		out:  fifo.MustNew[bus.Frame](2),
	}
	l.iface = bus.Interface{Channel: Channel, Mask: bus.MaskOf(frames.Led), Queue: l.in}
	l.handler.Fn = l.handle
	l.blink.Fn = l.step
	l.sender = bus.NewSender(port, &l.iface, l.out)
	return l
}

// Pattern returns on and off durations in Unit.
func (l *Led) Pattern() (on, off byte) { return l.on, l.off }

// Init implements framework.Initializer.
func (l *Led) Init(fx.InitContext) error {
	l.pin.Write(false)
	return l.port.Register(&l.iface)
}

// Control implements framework.Controller.
func (l *Led) Control(fx.ControlContext) error {
	l.Run()
	return nil
}

// Run steps the module once.
func (l *Led) Run() {
	pt.Schedule(&l.handler)
	pt.Schedule(&l.blink)
	pt.Schedule(l.sender)
}

func (l *Led) step(t *pt.T) pt.Status {
	switch t.At() {
	case 0:
		if l.on == 0 {
			l.pin.Write(false)
			return pt.Waiting
		}
		l.pin.Write(true)
		l.next = l.clk.Now().Add(clock.Time(l.on) * Unit)
		fallthrough
	case 1:
		if !t.WaitUntil(1, clock.Elapsed(l.clk, l.next)) {
			return pt.Waiting
		}
		if l.off == 0 {
			return t.Restart()
		}
		l.pin.Write(false)
		l.next = l.clk.Now().Add(clock.Time(l.off) * Unit)
		fallthrough
	case 2:
		if !t.WaitUntil(2, clock.Elapsed(l.clk, l.next)) {
			return pt.Waiting
		}
	}
	return t.Restart()
}

func (l *Led) handle(t *pt.T) pt.Status {
	switch t.At() {
	case 0:
		fallthrough
	case 1:
		if !t.WaitUntil(1, l.in.Get(&l.inFr) == nil) {
			return pt.Waiting
		}
		if l.inFr.IsResponse {
			return t.Restart()
		}
		fr := &l.inFr
		fr.Error = fr.Command != frames.Led || fr.Argv[0] != frames.LedAlive
		if !fr.Error {
			switch fr.Argv[1] {
			case frames.LedSet:
				l.on, l.off = fr.Argv[2], fr.Argv[3]
				l.blink.Init()
			case frames.LedGet:
				fr.Argv[2], fr.Argv[3] = l.on, l.off
			default:
				fr.Error = true
			}
		}
		l.inFr = l.inFr.Reply()
		fallthrough
	case 2:
		if !t.WaitUntil(2, l.out.Put(l.inFr) == nil) {
			return pt.Waiting
		}
	}
	return t.Restart()
}
