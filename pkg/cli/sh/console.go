package sh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/frames"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/pt"
)

// ConsoleChannel is the bus address of the shell.
const ConsoleChannel bus.Address = 1

// MaxLog bounds the frames kept by the console.
const MaxLog = 64

// Console is the shell's bus module: it sends frames typed by the user
// and records every frame the node routes.
type Console struct {
	port   bus.Port
	iface  bus.Interface
	out    *fifo.Queue[bus.Frame]
	sender *bus.Sender
	tid    byte

	log    []bus.Frame
	logged uint64
}

// NewConsole creates a Console on port listening to all commands.
func NewConsole(port bus.Port) *Console {
	c := &Console{port: port, out: fifo.MustNew[bus.Frame](4)}
	var mask bus.Mask
	for cmd := bus.Command(0); cmd <= bus.MaxCommand; cmd++ {
		mask = mask.Add(cmd)
	}
	c.iface = bus.Interface{Channel: ConsoleChannel, Mask: mask, Queue: fifo.MustNew[bus.Frame](16)}
	c.sender = bus.NewSender(port, &c.iface, c.out)
	return c
}

// Interface is the bus registration.
func (c *Console) Interface() *bus.Interface { return &c.iface }

// Init implements framework.Initializer.
func (c *Console) Init(fx.InitContext) error {
	return c.port.Register(&c.iface)
}

// Send queues fr with a fresh transaction id.
func (c *Console) Send(fr bus.Frame) (bus.Frame, error) {
	c.tid++
	fr.TransactionID = c.tid
	return fr, c.out.Put(fr)
}

// Control implements framework.Controller.
func (c *Console) Control(fx.ControlContext) error {
	var fr bus.Frame
	for c.iface.Queue.Get(&fr) == nil {
		if len(c.log) >= MaxLog {
			c.log = c.log[1:]
		}
		c.log = append(c.log, fr)
		c.logged++
	}
	pt.Schedule(c.sender)
	return nil
}

// Logged counts every frame recorded so far, including dropped and
// drained ones.
func (c *Console) Logged() uint64 { return c.logged }

// Since returns the recorded frames after mark, a value of Logged.
func (c *Console) Since(mark uint64) []bus.Frame {
	n := c.logged - mark
	if n > uint64(len(c.log)) {
		n = uint64(len(c.log))
	}
	return c.log[len(c.log)-int(n):]
}

// Drain returns and clears the recorded frames.
func (c *Console) Drain() []bus.Frame {
	frs := c.log
	c.log = nil
	return frs
}

// ParseFrame builds a frame from words: a command name or number,
// then up to six arguments. An argument of the form @ADDR sets the
// destination.
func ParseFrame(words []string) (bus.Frame, error) {
	if len(words) == 0 {
		return bus.Frame{}, fmt.Errorf("command required")
	}
	cmd, ok := frames.Lookup(words[0])
	if !ok {
		n, err := strconv.ParseUint(words[0], 0, 8)
		if err != nil || n > uint64(bus.MaxCommand) {
			return bus.Frame{}, fmt.Errorf("unknown command %q", words[0])
		}
		cmd = bus.Command(n)
	}
	fr := bus.NewFrame(bus.Self, bus.Self, cmd)
	var argc int
	for _, w := range words[1:] {
		if strings.HasPrefix(w, "@") {
			n, err := strconv.ParseUint(w[1:], 0, 8)
			if err != nil {
				return fr, fmt.Errorf("invalid destination %q", w)
			}
			fr.Destination = bus.Address(n)
			continue
		}
		if argc >= bus.ArgvSize {
			return fr, fmt.Errorf("at most %d arguments", bus.ArgvSize)
		}
		n, err := strconv.ParseInt(w, 0, 16)
		if err != nil || n < -128 || n > 255 {
			return fr, fmt.Errorf("invalid argument %q", w)
		}
		fr.Argv[argc] = byte(n)
		argc++
	}
	return fr, nil
}

// FormatFrame prints a frame with its command name.
func FormatFrame(fr bus.Frame) string {
	name := frames.Name(fr.Command)
	if name == "" {
		name = "?"
	}
	return fmt.Sprintf("%-16s %s", name, fr)
}
