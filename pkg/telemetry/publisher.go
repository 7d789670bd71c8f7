// Package telemetry publishes frames and node statistics for remote
// monitoring.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/clock"
	fx "github.com/robotalks/minut.go/pkg/framework"
)

// Sink delivers encoded records.
type Sink interface {
	Publish(topic string, payload []byte) error
}

// Topic kinds.
const (
	KindFrame = "frame"
	KindStats = "stats"
)

// Topic is the topic for records of kind from node.
func Topic(node, kind string) string {
	return fmt.Sprintf("telemetry/%s/%s", node, kind)
}

// Defaults.
const (
	DefaultBacklog  = 64
	DefaultInterval = clock.Second
)

// Publisher collects records on the control loop and sends them from
// its own goroutine. Records are dropped when the backlog is full so
// the loop never waits on the network.
type Publisher struct {
	Node     string
	Sink     Sink
	Clock    clock.Source
	Interval clock.Time
	// Snapshot fills the periodic stats record.
	Snapshot func() *StatsRecord

	ch      chan *Record
	next    clock.Time
	dropped atomic.Uint32
}

// NewPublisher creates a Publisher.
func NewPublisher(node string, sink Sink, src clock.Source) *Publisher {
	return &Publisher{
		Node:     node,
		Sink:     sink,
		Clock:    src,
		Interval: DefaultInterval,
		ch:       make(chan *Record, DefaultBacklog),
	}
}

// Dropped counts records lost to a full backlog.
func (p *Publisher) Dropped() uint32 { return p.dropped.Load() }

// Observe is a bus.Observer.
func (p *Publisher) Observe(dir bus.Direction, fr bus.Frame) {
	p.push(&Record{Frame: NewFrameRecord(dir, fr)})
}

// Control implements framework.Controller, emitting stats every Interval.
func (p *Publisher) Control(fx.ControlContext) error {
	if p.Snapshot == nil {
		return nil
	}
	if p.next != 0 && !clock.Elapsed(p.Clock, p.next) {
		return nil
	}
	p.next = p.Clock.Now().Add(p.Interval)
	p.push(&Record{Stats: p.Snapshot()})
	return nil
}

func (p *Publisher) push(r *Record) {
	r.Node, r.Time = p.Node, uint32(p.Clock.Now())
	select {
	case p.ch <- r:
	default:
		if p.dropped.Add(1) == 1 {
			glog.Warning("telemetry: backlog full, dropping records")
		}
	}
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case r := <-p.ch:
			kind := KindFrame
			if r.Stats != nil {
				kind = KindStats
				r.Stats.Dropouts = p.dropped.Load()
			}
			data, err := proto.Marshal(r)
			if err != nil {
				return err
			}
			if err := p.Sink.Publish(Topic(p.Node, kind), data); err != nil {
				glog.Warningf("telemetry: publish: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
