// Package frames is the command catalog of the recovery node and
// builders for the frames its modules exchange.
package frames

import "github.com/robotalks/minut.go/pkg/bus"

// Commands.
const (
	Container      bus.Command = 0x01
	State          bus.Command = 0x02
	AppliStart     bus.Command = 0x03
	Led            bus.Command = 0x04
	TakeOff        bus.Command = 0x10
	MinutTimeOut   bus.Command = 0x11
	MinutServoCmd  bus.Command = 0x12
	MinutServoInfo bus.Command = 0x13
)

// State sub-commands (argv[0]) and values (argv[1]).
const (
	StateGet byte = 0x9e
	StateSet byte = 0x5e

	StateInit      byte = 0x00
	StateOpen      byte = 0x01
	StateClose     byte = 0x02
	StateWaiting   byte = 0x04
	StateFlight    byte = 0x08
	StateParachute byte = 0x10
)

// Open time sub-commands (argv[0]).
const (
	TimeOutSave byte = 0x00
	TimeOutRead byte = 0xff
)

// Servo selectors.
const (
	ServoPara byte = 0xc0

	ServoSave byte = 0x5a
	ServoRead byte = 0x4e

	ServoOpen  byte = 0x09
	ServoClose byte = 0xc1
	ServoOff   byte = 0x0f
)

// Led selectors.
const (
	LedAlive byte = 0xa1
	LedSet   byte = 0x00
	LedGet   byte = 0xff
)

var names = map[bus.Command]string{
	Container:      "container",
	State:          "state",
	AppliStart:     "appli_start",
	Led:            "led",
	TakeOff:        "take_off",
	MinutTimeOut:   "minut_time_out",
	MinutServoCmd:  "minut_servo_cmd",
	MinutServoInfo: "minut_servo_info",
}

// Name returns the catalog name of cmd, empty if unknown.
func Name(cmd bus.Command) string {
	return names[cmd]
}

// Lookup finds a command by catalog name.
func Lookup(name string) (bus.Command, bool) {
	for cmd, n := range names {
		if n == name {
			return cmd, true
		}
	}
	return 0, false
}

// StateName names a state value.
func StateName(st byte) string {
	switch st {
	case StateInit:
		return "init"
	case StateOpen:
		return "open"
	case StateClose:
		return "close"
	case StateWaiting:
		return "waiting"
	case StateFlight:
		return "flight"
	case StateParachute:
		return "parachute"
	}
	return "unknown"
}

// NewContainer asks the node to play boot slot n.
func NewContainer(n byte) bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, Container, 0, 0, 0, n)
}

// ContainerSlot extracts the slot of a container frame.
func ContainerSlot(fr bus.Frame) byte {
	return fr.Argv[3]
}

// NewStateSet sets the node state.
func NewStateSet(st byte) bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, State, StateSet, st)
}

// NewStateGet queries the node state.
func NewStateGet() bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, State, StateGet)
}

// NewAppliStart signals the application may start.
func NewAppliStart() bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, AppliStart)
}

// NewTakeOff reports a take-off.
func NewTakeOff() bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, TakeOff)
}

// NewOpenTimeSave stores the open time in tenths of a second.
func NewOpenTimeSave(tenths byte) bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, MinutTimeOut, TimeOutSave, tenths)
}

// NewOpenTimeRead reads the open time.
func NewOpenTimeRead() bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, MinutTimeOut, TimeOutRead)
}

// NewServoCmd drives the parachute servo to ServoOpen, ServoClose or ServoOff.
func NewServoCmd(sense byte) bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, MinutServoCmd, ServoPara, sense)
}

// NewServoSave stores the position in degrees used for which (ServoOpen or ServoClose).
func NewServoSave(which byte, degrees int8) bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, MinutServoInfo, ServoPara, ServoSave, which, byte(degrees))
}

// NewServoRead reads a stored position.
func NewServoRead(which byte) bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, MinutServoInfo, ServoPara, ServoRead, which)
}

// NewLedSet sets the alive led blink, on and off in 10ms units.
func NewLedSet(on, off byte) bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, Led, LedAlive, LedSet, on, off)
}

// NewLedGet reads the alive led blink.
func NewLedGet() bus.Frame {
	return bus.NewFrame(bus.Self, bus.Self, Led, LedAlive, LedGet)
}
