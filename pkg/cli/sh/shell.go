// Package sh is an interactive bench shell over an in-process node
// with simulated hardware.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/clock"
	"github.com/robotalks/minut.go/pkg/frames"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/node"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Node    *node.Node
	HW      *node.SimHardware
	Console *Console

	ctx context.Context
}

// Status is a summary of the node.
type Status struct {
	Time      clock.Time `json:"time"`
	Sequencer string     `json:"sequencer"`
	Started   bool       `json:"started"`
	NodeState string     `json:"node_state"`
	OpenTime  byte       `json:"open_time"`
	Deadline  clock.Time `json:"deadline"`
	Servo     uint16     `json:"servo"`
	Led       [2]byte    `json:"led"`
	TakeOff   bool       `json:"take_off_pin"`
	Sampling  bool       `json:"sampling"`
	Count     int8       `json:"count"`
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&TickCmd,
		&RunCmd,
		&PinCmd,
		&StateCmd,
		&StatsCmd,
		&LockCmd,
		&LogCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// NewNode assembles a simulated node with a console attached.
func NewNode(ctx context.Context, conf *node.Config) (*node.Node, *node.SimHardware, *Console, error) {
	hw := node.NewSimHardware()
	n, err := node.New(conf, hw.Hardware())
	if err != nil {
		return nil, nil, nil, err
	}
	console := NewConsole(n.Bus)
	n.Loop.AddController(fx.PrLvControl, console)
	if err := n.Init(ctx); err != nil {
		n.Close()
		return nil, nil, nil, err
	}
	return n, hw, console, nil
}

// New creates a new shell with a simulated node.
func New(conf *node.Config) (*Shell, error) {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
		ctx:         context.Background(),
	}
	var err error
	if s.Node, s.HW, s.Console, err = NewNode(s.ctx, conf); err != nil {
		return nil, err
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(fmt.Sprintf("[%#02x] > ", conf.Address))
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Step runs count passes.
func (s *Shell) Step(count int) error {
	return s.Node.Steps(s.ctx, count)
}

// Advance runs passes covering d of node time.
func (s *Shell) Advance(d time.Duration) error {
	inc := time.Duration(s.Node.Clock.Increment) * time.Millisecond
	return s.Step(int((d + inc - 1) / inc))
}

// MaxReplyPasses bounds how long DoFrame waits for a reply.
const MaxReplyPasses = 20

// ErrNoReply is returned when no module answered a frame.
var ErrNoReply = errors.New("no reply")

// DoFrame sends fr from the console and runs the node until the reply
// is routed back.
func (s *Shell) DoFrame(fr bus.Frame) (bus.Frame, error) {
	mark := s.Console.Logged()
	sent, err := s.Console.Send(fr)
	if err != nil {
		return bus.Frame{}, fmt.Errorf("console busy: %w", err)
	}
	for i := 0; i < MaxReplyPasses; i++ {
		if err := s.Step(1); err != nil {
			return bus.Frame{}, err
		}
		for _, got := range s.Console.Since(mark) {
			if got.IsResponse && got.TransactionID == sent.TransactionID && got.Command == sent.Command {
				return got, nil
			}
		}
	}
	return bus.Frame{}, ErrNoReply
}

// DoCommand sends fr and prints the reply.
func DoCommand(c *ishell.Context, fr bus.Frame) {
	reply, err := ShellFrom(c).DoFrame(fr)
	if err != nil {
		c.Err(err)
		return
	}
	if reply.Error {
		c.Err(fmt.Errorf("rejected: %s", reply))
		return
	}
	Print(c, reply.Argv, "%s\n", FormatFrame(reply))
}

// Status summarizes the node.
func (s *Shell) Status() Status {
	n := s.Node
	on, off := n.Led.Pattern()
	return Status{
		Time:      n.Clock.Now(),
		Sequencer: n.Sequencer.State().String(),
		Started:   n.Sequencer.Started(),
		NodeState: frames.StateName(n.Common.State()),
		OpenTime:  n.Sequencer.OpenTime(),
		Deadline:  n.Sequencer.Deadline(),
		Servo:     s.HW.Servo.Compare(),
		Led:       [2]byte{on, off},
		TakeOff:   s.HW.TakeOff.Read(),
		Sampling:  n.TakeOff.Enabled(),
		Count:     n.TakeOff.Count(),
	}
}

// Print writes v as JSON in JSON mode, or with format otherwise.
func Print(c *ishell.Context, v interface{}, format string, args ...interface{}) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Printf(format, args...)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func countArg(c *ishell.Context, def int) (int, bool) {
	if len(c.Args) == 0 {
		return def, true
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil || n < 0 {
		c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
		return 0, false
	}
	return n, true
}

func stepAndReport(c *ishell.Context, fn func(*Shell) error) {
	s := ShellFrom(c)
	if err := fn(s); err != nil {
		c.Err(err)
		return
	}
	st := s.Status()
	Print(c, st, "t=%d %s node=%s\n", st.Time, st.Sequencer, st.NodeState)
}

var (
	// TickCmd runs passes.
	TickCmd = ishell.Cmd{
		Name:    "tick",
		Aliases: []string{"t"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			if n, ok := countArg(c, 1); ok {
				stepAndReport(c, func(s *Shell) error { return s.Step(n) })
			}
		},
	}

	// RunCmd advances node time.
	RunCmd = ishell.Cmd{
		Name:    "run",
		Aliases: []string{"r"},
		Help:    "DURATION",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("DURATION required"))
				return
			}
			d, err := time.ParseDuration(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("invalid DURATION: %v", err))
				return
			}
			stepAndReport(c, func(s *Shell) error { return s.Advance(d) })
		},
	}

	// PinCmd sets the take-off input.
	PinCmd = ishell.Cmd{
		Name: "pin",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				switch c.Args[0] {
				case "on", "1", "high":
					s.HW.TakeOff.Set(true)
				case "off", "0", "low":
					s.HW.TakeOff.Set(false)
				default:
					c.Err(fmt.Errorf("expect on or off"))
					return
				}
			}
			level := s.HW.TakeOff.Read()
			Print(c, level, "take-off pin %v\n", level)
		},
	}

	// StateCmd prints the node status.
	StateCmd = ishell.Cmd{
		Name:    "state",
		Aliases: []string{"st"},
		Func: func(c *ishell.Context) {
			st := ShellFrom(c).Status()
			Print(c, st, "t=%d sequencer=%s started=%v node=%s open-time=%d deadline=%d\n"+
				"servo=%d led=%d/%d pin=%v sampling=%v count=%d\n",
				st.Time, st.Sequencer, st.Started, st.NodeState, st.OpenTime, st.Deadline,
				st.Servo, st.Led[0], st.Led[1], st.TakeOff, st.Sampling, st.Count)
		},
	}

	// StatsCmd prints dispatcher and loop counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: func(c *ishell.Context) {
			d := ShellFrom(c).Node.Bus
			st := d.Stats()
			Print(c, st, "routed=%d delivered=%d dropped=%d unrouted=%d foreign=%d tx=%d busy=%d locks=%d lease-expired=%d\n",
				st.Routed, st.Delivered, st.Dropped, st.Unrouted, st.Foreign,
				st.Transmitted, st.Busy, st.Locks, st.LeaseExpired)
			if ShellFrom(c).OutputJSON {
				return
			}
			ls := ShellFrom(c).Node.Loop.Stats()
			c.Printf("  loop passes=%d overruns=%d errors=%d\n", ls.Passes, ls.Overruns, ls.Errors)
			for _, is := range d.InterfaceStats() {
				c.Printf("  channel %2d delivered=%d dropped=%d\n", is.Channel, is.Delivered, is.Dropped)
			}
		},
	}

	// LockCmd prints the transmit lock owner.
	LockCmd = ishell.Cmd{
		Name: "lock",
		Func: func(c *ishell.Context) {
			d := ShellFrom(c).Node.Bus
			owner := d.LockOwner()
			if owner == nil {
				Print(c, nil, "unlocked\n")
				return
			}
			Print(c, map[string]interface{}{"channel": owner.Channel, "held": d.LockHeldFor()},
				"channel %d holds the lock for %d passes\n", owner.Channel, d.LockHeldFor())
		},
	}

	// LogCmd prints frames seen since the last call.
	LogCmd = ishell.Cmd{
		Name:    "log",
		Aliases: []string{"l"},
		Func: func(c *ishell.Context) {
			frs := ShellFrom(c).Console.Drain()
			if ShellFrom(c).OutputJSON {
				out := make([]string, len(frs))
				for i, fr := range frs {
					out[i] = fr.String()
				}
				Print(c, out, "")
				return
			}
			for _, fr := range frs {
				c.Println(FormatFrame(fr))
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s, err := New(node.NewConfig())
	if err != nil {
		log.Fatalln(err)
	}
	defer s.Node.Close()
	s.Run(flag.Args()...)
}
