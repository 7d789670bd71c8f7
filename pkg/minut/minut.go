// Package minut is the flight sequencer: it opens and closes the
// parachute hatch after boot, waits for take-off and releases the
// parachute once the configured open time has elapsed.
package minut

import (
	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/clock"
	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/frames"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/pt"
	"github.com/robotalks/minut.go/pkg/stm"
)

// Channel is the bus address of the sequencer.
const Channel bus.Address = 7

// Mask lists the commands the sequencer consumes.
var Mask = bus.MaskOf(frames.TakeOff, frames.MinutTimeOut, frames.State, frames.AppliStart)

const (
	eventQueueSize = 5
	inQueueSize    = 3
	outQueueSize   = 4
)

// State is a step of the flight sequence.
type State int

// States.
const (
	Init State = iota
	Opening
	Closing
	Waiting
	Flight
	Parachute
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Opening:
		return "opening"
	case Closing:
		return "closing"
	case Waiting:
		return "waiting"
	case Flight:
		return "flight"
	case Parachute:
		return "parachute"
	}
	return "unknown"
}

// Event drives the sequence.
type Event int

// Events.
const (
	EvTimeOut Event = iota + 1
	EvTakeOff
)

func (e Event) String() string {
	switch e {
	case EvTimeOut:
		return "time-out"
	case EvTakeOff:
		return "take-off"
	}
	return "none"
}

// Sequencer is the flight sequencer module.
type Sequencer struct {
	port  bus.Port
	clk   clock.Source
	iface bus.Interface

	events  *fifo.Queue[Event]
	in      *fifo.Queue[bus.Frame]
	out     *fifo.Queue[bus.Frame]
	machine *stm.Machine[State, Event]

	chkTimeOut pt.Proc
	chkCmds    pt.Proc
	sender     *bus.Sender

	timeOut  clock.Time
	openTime byte
	started  bool
	early    uint32

	inFr  bus.Frame
	reply bus.Frame
}

// New creates a Sequencer.
func New(port bus.Port, clk clock.Source) *Sequencer {
	s := &Sequencer{
		port:    port,
		clk:     clk,
		events:  fifo.MustNew[Event](eventQueueSize),
		in:      fifo.MustNew[bus.Frame](inQueueSize),
		out:     fifo.MustNew[bus.Frame](outQueueSize),
		timeOut: clock.Never,
	}
	s.iface = bus.Interface{Channel: Channel, Mask: Mask, Queue: s.in}
	s.chkTimeOut.Fn = s.checkTimeOut
	s.chkCmds.Fn = s.checkCommands
	s.sender = bus.NewSender(port, &s.iface, s.out)

	var err error
	s.machine, err = stm.New(Init, stm.Table[State, Event]{
		Init: {
			Action:     s.action(1, func() clock.Time { return clock.Second }),
			Transition: &stm.Transition[State, Event]{Event: EvTimeOut, To: Opening},
		},
		Opening: {
			Action:     s.action(2, func() clock.Time { return 5 * clock.Second }),
			Transition: &stm.Transition[State, Event]{Event: EvTimeOut, To: Closing},
		},
		Closing: {
			Action:     s.action(3, func() clock.Time { return 2 * clock.Second }),
			Transition: &stm.Transition[State, Event]{Event: EvTimeOut, To: Waiting},
		},
		Waiting: {
			Action:     s.action(4, nil),
			Transition: &stm.Transition[State, Event]{Event: EvTakeOff, To: Flight},
		},
		Flight: {
			Action:     s.action(5, s.flightTime),
			Transition: &stm.Transition[State, Event]{Event: EvTimeOut, To: Parachute},
		},
		Parachute: {Action: s.action(6, nil)},
	})
	if err != nil {
		panic(err)
	}
	s.machine.OnTransition = func(from, to State, ev Event) {
		glog.Infof("minut: %s -> %s on %s at %d", from, to, ev, s.clk.Now())
	}
	return s
}

// State is the current step.
func (s *Sequencer) State() State { return s.machine.Current() }

// Started reports whether the application start signal was received.
func (s *Sequencer) Started() bool { return s.started }

// OpenTime is the delay between take-off and release, in tenths of a second.
func (s *Sequencer) OpenTime() byte { return s.openTime }

// EarlyTakeOffs counts take-off frames refused before the application
// start.
func (s *Sequencer) EarlyTakeOffs() uint32 { return s.early }

// Deadline is the pending time-out, clock.Never if none.
func (s *Sequencer) Deadline() clock.Time { return s.timeOut }

// Interface is the bus registration.
func (s *Sequencer) Interface() *bus.Interface { return &s.iface }

// Init implements framework.Initializer.
func (s *Sequencer) Init(fx.InitContext) error {
	return s.port.Register(&s.iface)
}

// Control implements framework.Controller.
func (s *Sequencer) Control(fx.ControlContext) error {
	s.Run()
	return nil
}

// Run steps the sequencer once.
func (s *Sequencer) Run() {
	if s.started {
		pt.Schedule(&s.chkTimeOut)
	}
	pt.Schedule(&s.chkCmds)
	if s.started {
		if _, pending := s.machine.Pending(); !pending {
			var ev Event
			if s.events.Get(&ev) == nil {
				s.machine.Post(ev)
			}
		}
		s.machine.Run()
	}
	pt.Schedule(s.sender)
}

func (s *Sequencer) flightTime() clock.Time {
	return clock.Time(s.openTime) * clock.Second / 10
}

// action emits the container frame tagged tag once on entry, arms the
// time-out and parks until the machine leaves the state.
func (s *Sequencer) action(tag byte, timeout func() clock.Time) pt.Func {
	return func(t *pt.T) pt.Status {
		switch t.At() {
		case 0:
			fallthrough
		case 1:
			if !t.WaitUntil(1, s.out.Put(frames.NewContainer(tag)) == nil) {
				return pt.Waiting
			}
			if timeout != nil {
				s.timeOut = s.clk.Now().Add(timeout())
			}
			fallthrough
		case 2:
			if t.YieldWhile(2, true) {
				return pt.Yielded
			}
		}
		return t.End()
	}
}

func (s *Sequencer) checkTimeOut(t *pt.T) pt.Status {
	switch t.At() {
	case 0:
		fallthrough
	case 1:
		if !t.WaitUntil(1, clock.Elapsed(s.clk, s.timeOut)) {
			return pt.Waiting
		}
		s.timeOut = clock.Never
		fallthrough
	case 2:
		if !t.WaitUntil(2, s.events.Put(EvTimeOut) == nil) {
			return pt.Waiting
		}
	}
	return t.Restart()
}

func (s *Sequencer) checkCommands(t *pt.T) pt.Status {
	switch t.At() {
	case 0:
		fallthrough
	case 1:
		if !t.WaitUntil(1, s.in.Get(&s.inFr) == nil) {
			return pt.Waiting
		}
		if s.inFr.IsResponse {
			return t.Exit()
		}
		s.inFr.Error = false
		switch s.inFr.Command {
		case frames.TakeOff:
			// events are only consumed once started
			if !s.started {
				s.early++
				s.inFr.Error = true
				glog.Warningf("minut: take-off before start refused (%d)", s.early)
			}
		case frames.MinutTimeOut:
			s.handleOpenTime(&s.inFr)
		case frames.State:
			// answered by the common module
			return t.Exit()
		case frames.AppliStart:
			if !s.started {
				glog.Info("minut: application started")
			}
			s.started = true
			return t.Restart()
		default:
			s.inFr.Error = true
		}
		fallthrough
	case 2:
		if s.inFr.Command == frames.TakeOff && !s.inFr.Error && !t.WaitUntil(2, s.events.Put(EvTakeOff) == nil) {
			return pt.Waiting
		}
		s.reply = s.inFr.Reply()
		fallthrough
	case 3:
		if !t.WaitUntil(3, s.out.Put(s.reply) == nil) {
			return pt.Waiting
		}
	}
	return t.Restart()
}

func (s *Sequencer) handleOpenTime(fr *bus.Frame) {
	switch fr.Argv[0] {
	case frames.TimeOutSave:
		s.openTime = fr.Argv[1]
	case frames.TimeOutRead:
		fr.Argv[1] = s.openTime
	default:
		fr.Error = true
	}
}
