// Package takeoff debounces the take-off pin and reports take-off on
// the bus. Sampling only happens while the node is in waiting state.
package takeoff

import (
	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/clock"
	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/frames"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/hal"
	"github.com/robotalks/minut.go/pkg/pt"
)

// Channel is the bus address of the detector.
const Channel bus.Address = 8

// Mask lists the commands the detector consumes.
var Mask = bus.MaskOf(frames.TakeOff, frames.State)

// Period is the sampling period.
const Period = 10 * clock.Millisecond

// Threshold is the counter value to exceed before take-off is reported.
const Threshold = 5

// Detector is the take-off module.
type Detector struct {
	port  bus.Port
	clk   clock.Source
	pin   hal.InputPin
	iface bus.Interface

	in  *fifo.Queue[bus.Frame]
	out *fifo.Queue[bus.Frame]

	commands pt.Proc
	debounce pt.Proc
	sender   *bus.Sender
	inFr     bus.Frame

	enabled bool
	period  clock.Time
	count   int8
	reports uint32
}

// New creates a Detector sampling pin.
func New(port bus.Port, clk clock.Source, pin hal.InputPin) *Detector {
	d := &Detector{
		port: port,
		clk:  clk,
		pin:  pin,
		in:   fifo.MustNew[bus.Frame](1),
		out:  fifo.MustNew[bus.Frame](1),
	}
	d.iface = bus.Interface{Channel: Channel, Mask: Mask, Queue: d.in}
	d.commands.Fn = d.checkCommands
	d.debounce.Fn = d.sample
	d.sender = bus.NewSender(port, &d.iface, d.out)
	return d
}

// Enabled reports whether the pin is being sampled.
func (d *Detector) Enabled() bool { return d.enabled }

// Count is the debounce counter.
func (d *Detector) Count() int8 { return d.count }

// Reports counts take-off frames queued.
func (d *Detector) Reports() uint32 { return d.reports }

// Init implements framework.Initializer.
func (d *Detector) Init(fx.InitContext) error {
	return d.port.Register(&d.iface)
}

// Control implements framework.Controller.
func (d *Detector) Control(fx.ControlContext) error {
	d.Run()
	return nil
}

// Run steps the detector once.
func (d *Detector) Run() {
	pt.Schedule(&d.commands)
	if d.enabled {
		pt.Schedule(&d.debounce)
	}
	pt.Schedule(d.sender)
}

func (d *Detector) checkCommands(t *pt.T) pt.Status {
	if !t.WaitUntil(1, d.in.Get(&d.inFr) == nil) {
		return pt.Waiting
	}
	fr := &d.inFr
	if fr.Command != frames.State || fr.IsResponse || fr.Argv[0] != frames.StateSet {
		return t.Restart()
	}
	if fr.Argv[1] == frames.StateWaiting {
		if !d.enabled {
			glog.V(1).Info("takeoff: sampling enabled")
		}
		d.enabled, d.count = true, 0
		d.period = d.clk.Now().Add(Period)
		d.debounce.Init()
	} else {
		d.enabled = false
	}
	return t.Restart()
}

func (d *Detector) sample(t *pt.T) pt.Status {
	if !t.WaitUntil(1, clock.Elapsed(d.clk, d.period)) {
		return pt.Waiting
	}
	d.period = d.period.Add(Period)
	if d.pin.Read() {
		if d.count <= Threshold {
			d.count++
		}
	} else if d.count > 0 {
		d.count--
	}
	if d.count > Threshold && d.out.Put(frames.NewTakeOff()) == nil {
		d.reports++
		if d.reports == 1 {
			glog.Infof("takeoff: detected at %d", d.clk.Now())
		}
	}
	return t.Restart()
}
