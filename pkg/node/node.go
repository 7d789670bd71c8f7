// Package node assembles a recovery node: the dispatcher, the device
// modules and the control loop driving them.
package node

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/clock"
	"github.com/robotalks/minut.go/pkg/common"
	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/hal"
	"github.com/robotalks/minut.go/pkg/led"
	"github.com/robotalks/minut.go/pkg/link"
	"github.com/robotalks/minut.go/pkg/link/mqtt"
	"github.com/robotalks/minut.go/pkg/minut"
	"github.com/robotalks/minut.go/pkg/servo"
	"github.com/robotalks/minut.go/pkg/takeoff"
	"github.com/robotalks/minut.go/pkg/telemetry"
)

// Hardware is the set of pins a node drives.
type Hardware struct {
	TakeOff hal.InputPin
	Led     hal.OutputPin
	Servo   hal.PWM
}

// SimHardware is Hardware backed by simulated pins.
type SimHardware struct {
	TakeOff *hal.SimPin
	Led     *hal.SimPin
	Servo   *hal.SimPWM
}

// NewSimHardware creates simulated pins.
func NewSimHardware() *SimHardware {
	return &SimHardware{TakeOff: &hal.SimPin{}, Led: &hal.SimPin{}, Servo: &hal.SimPWM{}}
}

// Hardware returns the pins as Hardware.
func (h *SimHardware) Hardware() Hardware {
	return Hardware{TakeOff: h.TakeOff, Led: h.Led, Servo: h.Servo}
}

// Node is an assembled recovery node.
type Node struct {
	Config    *Config
	Clock     *clock.Clock
	Bus       *bus.Dispatcher
	Loop      *fx.Loop
	Common    *common.Common
	Sequencer *minut.Sequencer
	Servo     *servo.Servo
	TakeOff   *takeoff.Detector
	Led       *led.Led

	Link      *link.Link
	Telemetry *telemetry.Publisher

	closers []func() error
}

// New assembles a node. The link and telemetry connections are opened
// when configured.
func New(conf *Config, hw Hardware) (*Node, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	slots := common.DefaultSlots()
	if conf.SlotsFile != "" {
		var err error
		if slots, err = common.LoadSlots(conf.SlotsFile); err != nil {
			return nil, err
		}
	}

	n := &Node{Config: conf, Clock: clock.New(clock.Time(conf.Increment))}
	var medium bus.Medium
	if conf.LinkURL != "" {
		l, err := link.Open(conf.LinkURL, bus.Address(conf.Address))
		if err != nil {
			return nil, err
		}
		n.Link, medium = l, l.Medium
		n.closers = append(n.closers, l.Close)
	}
	n.Bus = bus.New(conf.BusConfig(), medium)
	n.Common = common.New(n.Bus, slots)
	n.Sequencer = minut.New(n.Bus, n.Clock)
	n.Servo = servo.New(n.Bus, hw.Servo)
	n.TakeOff = takeoff.New(n.Bus, n.Clock, hw.TakeOff)
	n.Led = led.New(n.Bus, n.Clock, hw.Led)

	n.Loop = fx.NewLoop(n.Clock)
	n.Loop.Interval = conf.Interval
	n.Loop.AddController(fx.PrLvRoute, fx.ControlFunc(n.route))
	n.Loop.AddController(fx.PrLvCommon, n.Common, n.Led)
	n.Loop.AddController(fx.PrLvControl, n.Sequencer, n.TakeOff)
	n.Loop.AddController(fx.PrLvAcuate, n.Servo)
	if n.Link != nil {
		n.Loop.AddRunnable(fx.NamedRun("link", n.Link.Medium))
	}

	if conf.TelemetryURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.TelemetryURL)
		if err != nil {
			n.Close()
			return nil, err
		}
		if err := q.Connect(); err != nil {
			n.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		n.closers = append(n.closers, q.Close)
		n.EnableTelemetry(q)
	}
	return n, nil
}

// EnableTelemetry publishes frames and periodic stats to sink. The
// publisher runs with the loop.
func (n *Node) EnableTelemetry(sink telemetry.Sink) *telemetry.Publisher {
	n.Telemetry = telemetry.NewPublisher(n.Config.ID, sink, n.Clock)
	n.Telemetry.Snapshot = n.snapshot
	n.Bus.Observe(n.Telemetry.Observe)
	n.Loop.AddController(fx.PrLvPostProc, n.Telemetry)
	return n.Telemetry
}

func (n *Node) route(fx.ControlContext) error {
	n.Bus.Run()
	return nil
}

func (n *Node) snapshot() *telemetry.StatsRecord {
	r := telemetry.NewStatsRecord(n.Bus.Stats())
	r.NodeState = uint32(n.Common.State())
	r.Sequencer = n.Sequencer.State().String()
	ls := n.Loop.Stats()
	r.Passes, r.Overruns, r.Errors = ls.Passes, ls.Overruns, ls.Errors
	return r
}

// Init initializes the modules.
func (n *Node) Init(ctx context.Context) error {
	return n.Loop.Init(ctx)
}

// Step advances the clock by one increment and runs one pass.
func (n *Node) Step(ctx context.Context) error {
	n.Clock.Tick()
	return n.Loop.Tick(ctx)
}

// Steps runs count passes.
func (n *Node) Steps(ctx context.Context, count int) error {
	for i := 0; i < count; i++ {
		if err := n.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run runs the node in real time until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	glog.Infof("node %s at %#02x started", n.Config.ID, n.Config.Address)
	return fx.NewRunnerWith(ctx).
		Go(fx.NamedRun("clock", n.Clock), fx.NamedRun("loop", n.Loop)).
		Wait()
}

// Close releases connections.
func (n *Node) Close() error {
	var errs fx.AggregatedError
	for i := len(n.closers) - 1; i >= 0; i-- {
		errs.Add(n.closers[i]())
	}
	n.closers = nil
	return errs.Aggregate()
}
