// Package common hosts node level services: it plays boot slots when a
// container frame asks for one and keeps the node state register.
package common

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/frames"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/pt"
)

// Channel is the bus address of the common module.
const Channel bus.Address = 2

// Mask lists the commands the common module consumes.
var Mask = bus.MaskOf(frames.Container, frames.State)

const (
	inQueueSize  = 4
	outQueueSize = 8
)

// SlotError reports a container frame naming a slot that does not exist.
type SlotError struct {
	Slot  int
	Slots int
}

// Error implements error.
func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %d out of range (%d slots)", e.Slot, e.Slots)
}

// Common is the common services module.
type Common struct {
	port  bus.Port
	iface bus.Interface
	slots Slots

	in  *fifo.Queue[bus.Frame]
	out *fifo.Queue[bus.Frame]

	handler pt.Proc
	sender  *bus.Sender
	inFr    bus.Frame

	playing []bus.Frame
	played  uint32
	state   byte
}

// New creates a Common playing slots.
func New(port bus.Port, slots Slots) *Common {
	c := &Common{
		port:  port,
		slots: slots,
		in:    fifo.MustNew[bus.Frame](inQueueSize),
		out:   fifo.MustNew[bus.Frame](outQueueSize),
	}
	c.iface = bus.Interface{Channel: Channel, Mask: Mask, Queue: c.in}
	c.handler.Fn = c.handle
	c.sender = bus.NewSender(port, &c.iface, c.out)
	return c
}

// State is the node state register.
func (c *Common) State() byte { return c.state }

// Played counts slots started.
func (c *Common) Played() uint32 { return c.played }

// Init implements framework.Initializer and schedules slot 0.
func (c *Common) Init(fx.InitContext) error {
	if err := c.port.Register(&c.iface); err != nil {
		return err
	}
	return c.Play(0)
}

// Control implements framework.Controller.
func (c *Common) Control(fx.ControlContext) error {
	c.Run()
	return nil
}

// Run steps the module once.
func (c *Common) Run() {
	pt.Schedule(&c.handler)
	pt.Schedule(c.sender)
}

// Play queues the frames of slot n, replacing a slot still being played.
func (c *Common) Play(n int) error {
	if n < 0 || n >= len(c.slots) {
		return &SlotError{Slot: n, Slots: len(c.slots)}
	}
	glog.V(1).Infof("common: play slot %d", n)
	c.playing = c.slots[n]
	c.played++
	return nil
}

// flush queues the frames of the playing slot, reporting when all are out.
func (c *Common) flush() bool {
	for len(c.playing) > 0 {
		if c.out.Put(c.playing[0]) != nil {
			return false
		}
		c.playing = c.playing[1:]
	}
	return true
}

func (c *Common) handle(t *pt.T) pt.Status {
	switch t.At() {
	case 0:
		fallthrough
	case 1:
		if !t.WaitUntil(1, c.flush()) {
			return pt.Waiting
		}
		fallthrough
	case 2:
		if !t.WaitUntil(2, c.in.Get(&c.inFr) == nil) {
			return pt.Waiting
		}
		if c.inFr.IsResponse {
			return t.Restart()
		}
		fr := &c.inFr
		fr.Error = false
		switch fr.Command {
		case frames.Container:
			if err := c.Play(int(frames.ContainerSlot(*fr))); err != nil {
				glog.Warningf("common: %v", err)
				fr.Error = true
			}
		case frames.State:
			switch fr.Argv[0] {
			case frames.StateGet:
				fr.Argv[1] = c.state
			case frames.StateSet:
				if c.state != fr.Argv[1] {
					glog.Infof("common: state %s", frames.StateName(fr.Argv[1]))
				}
				c.state = fr.Argv[1]
			default:
				fr.Error = true
			}
		default:
			fr.Error = true
		}
		c.inFr = c.inFr.Reply()
		fallthrough
	case 3:
		if !t.WaitUntil(3, c.out.Put(c.inFr) == nil) {
			return pt.Waiting
		}
	}
	return t.Restart()
}
