// Package servo drives the parachute hatch servo.
package servo

import (
	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/frames"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/hal"
	"github.com/robotalks/minut.go/pkg/pt"
)

// Channel is the bus address of the servo module.
const Channel bus.Address = 10

// Mask lists the commands the servo consumes.
var Mask = bus.MaskOf(frames.MinutServoCmd, frames.MinutServoInfo)

const (
	inQueueSize  = 3
	outQueueSize = 3
)

// Compare converts a position in degrees into the PWM compare value:
// -90 is 1ms high (2000), 0 is 1.5ms (3000), +90 is 2ms (4000).
func Compare(degrees int8) uint16 {
	return uint16(int16(degrees)*100/9 + 3000)
}

// Servo is the servo module.
type Servo struct {
	port  bus.Port
	pwm   hal.PWM
	iface bus.Interface

	in  *fifo.Queue[bus.Frame]
	out *fifo.Queue[bus.Frame]

	handler pt.Proc
	sender  *bus.Sender
	inFr    bus.Frame

	openPos  int8
	closePos int8
}

// New creates a Servo driving pwm.
func New(port bus.Port, pwm hal.PWM) *Servo {
	s := &Servo{
		port: port,
		pwm:  pwm,
		in:   fifo.MustNew[bus.Frame](inQueueSize),
		out:  fifo.MustNew[bus.Frame](outQueueSize),
	}
	s.iface = bus.Interface{Channel: Channel, Mask: Mask, Queue: s.in}
	s.handler.Fn = s.handle
	s.sender = bus.NewSender(port, &s.iface, s.out)
	return s
}

// Positions returns the stored open and close positions in degrees.
func (s *Servo) Positions() (opening, closing int8) {
	return s.openPos, s.closePos
}

// Init implements framework.Initializer. The output starts off.
func (s *Servo) Init(fx.InitContext) error {
	s.pwm.SetCompare(0)
	return s.port.Register(&s.iface)
}

// Control implements framework.Controller.
func (s *Servo) Control(fx.ControlContext) error {
	s.Run()
	return nil
}

// Run steps the servo once.
func (s *Servo) Run() {
	pt.Schedule(&s.handler)
	pt.Schedule(s.sender)
}

func (s *Servo) handle(t *pt.T) pt.Status {
	switch t.At() {
	case 0:
		fallthrough
	case 1:
		if !t.WaitUntil(1, s.in.Get(&s.inFr) == nil) {
			return pt.Waiting
		}
		if s.inFr.IsResponse {
			return t.Restart()
		}
		s.inFr.Error = false
		switch s.inFr.Command {
		case frames.MinutServoCmd:
			s.drive(&s.inFr)
		case frames.MinutServoInfo:
			s.position(&s.inFr)
		default:
			s.inFr.Error = true
		}
		s.inFr = s.inFr.Reply()
		fallthrough
	case 2:
		if !t.WaitUntil(2, s.out.Put(s.inFr) == nil) {
			return pt.Waiting
		}
	}
	return t.Restart()
}

func (s *Servo) drive(fr *bus.Frame) {
	if fr.Argv[0] != frames.ServoPara {
		fr.Error = true
		return
	}
	switch fr.Argv[1] {
	case frames.ServoOpen:
		s.pwm.SetCompare(Compare(s.openPos))
		glog.V(1).Infof("servo: open at %d deg", s.openPos)
	case frames.ServoClose:
		s.pwm.SetCompare(Compare(s.closePos))
		glog.V(1).Infof("servo: close at %d deg", s.closePos)
	case frames.ServoOff:
		s.pwm.SetCompare(0)
	default:
		fr.Error = true
	}
}

func (s *Servo) position(fr *bus.Frame) {
	if fr.Argv[0] != frames.ServoPara {
		fr.Error = true
		return
	}
	var pos *int8
	switch fr.Argv[2] {
	case frames.ServoOpen:
		pos = &s.openPos
	case frames.ServoClose:
		pos = &s.closePos
	default:
		fr.Error = true
		return
	}
	switch fr.Argv[1] {
	case frames.ServoSave:
		*pos = int8(fr.Argv[3])
	case frames.ServoRead:
		fr.Argv[3] = byte(*pos)
	default:
		fr.Error = true
	}
}
