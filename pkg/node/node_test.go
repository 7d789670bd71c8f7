package node

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/minut.go/pkg/frames"
	"github.com/robotalks/minut.go/pkg/minut"
	"github.com/robotalks/minut.go/pkg/servo"
	"github.com/robotalks/minut.go/pkg/telemetry"
)

type simNode struct {
	*Node
	t   *testing.T
	ctx context.Context
	hw  *SimHardware
}

func newSimNode(t *testing.T, conf *Config) *simNode {
	if conf == nil {
		conf = NewConfig()
		conf.ID = "test"
	}
	hw := NewSimHardware()
	n, err := New(conf, hw.Hardware())
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	s := &simNode{Node: n, t: t, ctx: context.Background(), hw: hw}
	require.NoError(t, n.Init(s.ctx))
	return s
}

func (s *simNode) steps(count int) {
	require.NoError(s.t, s.Steps(s.ctx, count))
}

// stepUntil steps until cond holds and returns the passes taken.
func (s *simNode) stepUntil(what string, max int, cond func() bool) int {
	for i := 1; i <= max; i++ {
		require.NoError(s.t, s.Step(s.ctx))
		if cond() {
			return i
		}
	}
	require.FailNowf(s.t, "timeout", "%s not reached in %d passes", what, max)
	return 0
}

func (s *simNode) inState(st minut.State) func() bool {
	return func() bool { return s.Sequencer.State() == st }
}

func TestRecoverySequence(t *testing.T) {
	n := newSimNode(t, nil)
	opening, closing := servo.Compare(-90), servo.Compare(45)

	n.stepUntil("started", 20, n.Sequencer.Started)
	assert.Equal(t, minut.Init, n.Sequencer.State())
	assert.Equal(t, byte(85), n.Sequencer.OpenTime())
	n.steps(5)
	p0, p1 := n.Servo.Positions()
	assert.Equal(t, int8(-90), p0)
	assert.Equal(t, int8(45), p1)
	assert.Equal(t, frames.StateInit, n.Common.State())

	// 1s per state at 10ms per pass
	passes := n.stepUntil("opening", 120, n.inState(minut.Opening))
	assert.InDelta(t, 95, passes, 5)
	n.stepUntil("hatch open", 10, func() bool { return n.hw.Servo.Compare() == opening })
	assert.Equal(t, frames.StateOpen, n.Common.State())

	passes = n.stepUntil("closing", 520, n.inState(minut.Closing))
	assert.InDelta(t, 500, passes, 10)
	n.stepUntil("hatch closed", 10, func() bool { return n.hw.Servo.Compare() == closing })

	passes = n.stepUntil("waiting", 220, n.inState(minut.Waiting))
	assert.InDelta(t, 200, passes, 10)
	n.stepUntil("take-off enabled", 10, n.TakeOff.Enabled)
	assert.Equal(t, frames.StateWaiting, n.Common.State())
	on, off := n.Led.Pattern()
	assert.Equal(t, byte(90), on)
	assert.Equal(t, byte(10), off)

	n.steps(100)
	require.Equal(t, minut.Waiting, n.Sequencer.State())

	n.hw.TakeOff.Set(true)
	n.stepUntil("flight", 50, n.inState(minut.Flight))
	n.stepUntil("state flight", 10, func() bool { return n.Common.State() == frames.StateFlight })
	assert.False(t, n.TakeOff.Enabled())

	// open time is 8.5s
	n.steps(800)
	require.Equal(t, minut.Flight, n.Sequencer.State())
	n.stepUntil("parachute", 60, n.inState(minut.Parachute))
	n.stepUntil("hatch released", 10, func() bool { return n.hw.Servo.Compare() == opening })
	n.stepUntil("state parachute", 10, func() bool { return n.Common.State() == frames.StateParachute })

	n.steps(500)
	assert.Equal(t, minut.Parachute, n.Sequencer.State())
	assert.Zero(t, n.Bus.Stats().LeaseExpired)
}

func TestNoTakeOffWithoutWaiting(t *testing.T) {
	n := newSimNode(t, nil)
	n.hw.TakeOff.Set(true)
	n.stepUntil("opening", 200, n.inState(minut.Opening))
	assert.False(t, n.TakeOff.Enabled())
	assert.Zero(t, n.TakeOff.Reports())
}

type testSink struct {
	lock   sync.Mutex
	topics map[string]int
	frames []*telemetry.FrameRecord
}

func (s *testSink) Publish(topic string, payload []byte) error {
	r, err := telemetry.Decode(payload)
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.topics[topic]++
	if r.Frame != nil {
		s.frames = append(s.frames, r.Frame)
	}
	return nil
}

func (s *testSink) sawCommand(cmd uint32) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, fr := range s.frames {
		if fr.Command == cmd {
			return true
		}
	}
	return false
}

func TestTelemetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := newSimNode(t, nil)
	sink := &testSink{topics: make(map[string]int)}
	pub := n.EnableTelemetry(sink)
	go pub.Run(ctx)

	n.steps(20)
	require.Eventually(t, func() bool {
		return sink.sawCommand(uint32(frames.AppliStart))
	}, time.Second, 5*time.Millisecond)
	sink.lock.Lock()
	defer sink.lock.Unlock()
	assert.NotZero(t, sink.topics[telemetry.Topic("test", telemetry.KindStats)])
}

func TestSlotsFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "slots.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
version: "1"
slots:
  - name: reset
    frames:
      - cmd: minut_time_out
        argv: [0, 20]
      - cmd: appli_start
`), 0644))
	conf := NewConfig()
	conf.SlotsFile = fn
	n := newSimNode(t, conf)
	n.stepUntil("started", 20, n.Sequencer.Started)
	assert.Equal(t, byte(20), n.Sequencer.OpenTime())
}

func TestNewErrors(t *testing.T) {
	hw := NewSimHardware().Hardware()

	conf := NewConfig()
	conf.Address = 0xff
	_, err := New(conf, hw)
	assert.Error(t, err)

	conf = NewConfig()
	conf.Increment = 0
	_, err = New(conf, hw)
	assert.Error(t, err)

	conf = NewConfig()
	conf.SlotsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(conf, hw)
	assert.Error(t, err)

	conf = NewConfig()
	conf.LinkURL = "carrier-pigeon://home"
	_, err = New(conf, hw)
	assert.Error(t, err)
}

func TestRunRealTime(t *testing.T) {
	conf := NewConfig()
	conf.Increment = 1
	n, err := New(conf, NewSimHardware().Hardware())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = n.Run(ctx)
	assert.True(t, err == nil || ctx.Err() != nil)
	assert.True(t, n.Sequencer.Started())
	assert.NotZero(t, n.Clock.Now())
}

func TestConfigDefaults(t *testing.T) {
	conf := NewConfig()
	assert.Equal(t, uint(0x20), conf.Address)
	assert.NotEmpty(t, conf.ID)
	assert.NoError(t, conf.Validate())
	assert.NotSame(t, Default(), conf)
	bc := conf.BusConfig()
	assert.EqualValues(t, 0x20, bc.Address)
	assert.Zero(t, bc.LockLease)
}

func TestSnapshot(t *testing.T) {
	n := newSimNode(t, nil)
	n.steps(150)
	r := n.snapshot()
	assert.EqualValues(t, 150, r.Passes)
	assert.Zero(t, r.Errors)
	assert.Equal(t, "opening", r.Sequencer)
	assert.NotZero(t, r.Routed)
}
