// Package frames adds shell commands sending catalog frames.
package frames

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/cli/sh"
	"github.com/robotalks/minut.go/pkg/frames"
)

func byteArg(c *ishell.Context, i int, name string) (byte, bool) {
	if len(c.Args) <= i {
		c.Err(fmt.Errorf("%s required", name))
		return 0, false
	}
	n, err := strconv.ParseUint(c.Args[i], 0, 8)
	if err != nil {
		c.Err(fmt.Errorf("invalid %s: %v", name, err))
		return 0, false
	}
	return byte(n), true
}

func servoSelector(s string) (byte, error) {
	switch s {
	case "open":
		return frames.ServoOpen, nil
	case "close":
		return frames.ServoClose, nil
	case "off":
		return frames.ServoOff, nil
	}
	return 0, fmt.Errorf("expect open, close or off")
}

var (
	// SendCmd sends a raw frame.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "CMD [@DEST] [ARG...]",
		Func: func(c *ishell.Context) {
			fr, err := sh.ParseFrame(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, fr)
		},
	}

	// SlotCmd plays a boot slot.
	SlotCmd = ishell.Cmd{
		Name: "slot",
		Help: "N",
		Func: func(c *ishell.Context) {
			if n, ok := byteArg(c, 0, "N"); ok {
				sh.DoCommand(c, frames.NewContainer(n))
			}
		},
	}

	// LedCmd sets or reads the led pattern.
	LedCmd = ishell.Cmd{
		Name: "led",
		Help: "[ON OFF] (10ms units)",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				sh.DoCommand(c, frames.NewLedGet())
				return
			}
			on, ok := byteArg(c, 0, "ON")
			if !ok {
				return
			}
			if off, ok := byteArg(c, 1, "OFF"); ok {
				sh.DoCommand(c, frames.NewLedSet(on, off))
			}
		},
	}

	// ServoCmd drives the servo or stores a position.
	ServoCmd = ishell.Cmd{
		Name: "servo",
		Help: "open|close|off | save open|close DEGREES | read open|close",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("argument required"))
				return
			}
			var fr bus.Frame
			switch c.Args[0] {
			case "save", "read":
				if len(c.Args) < 2 {
					c.Err(fmt.Errorf("open or close required"))
					return
				}
				which, err := servoSelector(c.Args[1])
				if err != nil {
					c.Err(err)
					return
				}
				if c.Args[0] == "read" {
					fr = frames.NewServoRead(which)
					break
				}
				if len(c.Args) < 3 {
					c.Err(fmt.Errorf("DEGREES required"))
					return
				}
				deg, err := strconv.ParseInt(c.Args[2], 0, 8)
				if err != nil {
					c.Err(fmt.Errorf("invalid DEGREES: %v", err))
					return
				}
				fr = frames.NewServoSave(which, int8(deg))
			default:
				sense, err := servoSelector(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				fr = frames.NewServoCmd(sense)
			}
			sh.DoCommand(c, fr)
		},
	}

	// OpenTimeCmd sets or reads the parachute open time.
	OpenTimeCmd = ishell.Cmd{
		Name:    "opentime",
		Aliases: []string{"ot"},
		Help:    "[TENTHS]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				sh.DoCommand(c, frames.NewOpenTimeRead())
				return
			}
			if n, ok := byteArg(c, 0, "TENTHS"); ok {
				sh.DoCommand(c, frames.NewOpenTimeSave(n))
			}
		},
	}

	// NodeStateCmd reads the node state register.
	NodeStateCmd = ishell.Cmd{
		Name: "nodestate",
		Func: func(c *ishell.Context) {
			sh.DoCommand(c, frames.NewStateGet())
		},
	}
)

func init() {
	sh.AddCmds(
		&SendCmd,
		&SlotCmd,
		&LedCmd,
		&ServoCmd,
		&OpenTimeCmd,
		&NodeStateCmd,
	)
}
