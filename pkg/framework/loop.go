package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/clock"
)

// DefaultInterval paces the loop when Interval is not set.
const DefaultInterval = time.Millisecond

// Stats counts loop activity.
type Stats struct {
	Passes uint64 `json:"passes"`
	// Overruns counts real-time passes that took longer than Interval.
	Overruns uint64 `json:"overruns"`
	// Errors counts errors returned by controllers.
	Errors uint64 `json:"errors"`
}

// Loop polls controllers in priority order, one pass at a time.
// Controllers at the same level run in the order they were added.
type Loop struct {
	Interval time.Duration
	Clock    clock.Source

	levels  [PriorityLevels][]Controller
	runners []Runnable

	lock        sync.Mutex
	initialized bool
	stats       Stats
}

type passContext struct {
	loop  *Loop
	ctx   context.Context
	pass  uint64
	level int
}

// NewLoop creates a Loop reading time from src.
func NewLoop(src clock.Source) *Loop {
	return &Loop{Interval: DefaultInterval, Clock: src}
}

// AddController registers controllers at a priority level. A controller
// which is also a Runnable is run in the background by Run.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.levels[priorityLevel] = append(l.levels[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds background Runnables started by Run.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Stats returns a snapshot of the counters.
func (l *Loop) Stats() Stats {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.stats
}

// Pass is the number of completed passes.
func (l *Loop) Pass() uint64 {
	return l.Stats().Passes
}

// Init calls Init on every Initializer once. Later calls do nothing.
func (l *Loop) Init(ctx context.Context) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.init(ctx)
}

func (l *Loop) init(ctx context.Context) error {
	if l.initialized {
		return nil
	}
	l.initialized = true
	ictx := &passContext{loop: l, ctx: ctx}
	var errs AggregatedError
	for _, ctls := range l.levels {
		for _, ctl := range ctls {
			if in, ok := ctl.(Initializer); ok {
				errs.Add(in.Init(ictx))
			}
		}
	}
	return errs.Aggregate()
}

// Tick runs exactly one pass, initializing first if needed.
func (l *Loop) Tick(ctx context.Context) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if err := l.init(ctx); err != nil {
		return err
	}
	l.runPass(ctx)
	return nil
}

// Run implements Runnable. It runs one pass every Interval along with
// the background Runnables, and stops when ctx is done or any of the
// Runnables returns.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Init(ctx); err != nil {
		return err
	}

	runner := NewRunnerWith(ctx).Go(l.runners...)

	interval := l.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-runner.Context().Done():
			runner.Stop()
			if err := runner.Wait(); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return context.Canceled
		case <-ticker.C:
		}
		start := time.Now()
		l.lock.Lock()
		l.runPass(ctx)
		if time.Since(start) > interval {
			l.stats.Overruns++
			glog.V(1).Infof("pass %d overran %v", l.stats.Passes, interval)
		}
		l.lock.Unlock()
	}
}

func (l *Loop) runPass(ctx context.Context) {
	pc := &passContext{loop: l, ctx: ctx, pass: l.stats.Passes}
	for lv, ctls := range l.levels {
		pc.level = lv
		for _, ctl := range ctls {
			if err := ctl.Control(pc); err != nil {
				l.stats.Errors++
				glog.Errorf("pass %d level %d: %v", pc.pass, lv, err)
			}
		}
	}
	l.stats.Passes++
}

func (c *passContext) Context() context.Context {
	return c.ctx
}

func (c *passContext) Now() clock.Time {
	if c.loop.Clock == nil {
		return 0
	}
	return c.loop.Clock.Now()
}

func (c *passContext) Pass() uint64 {
	return c.pass
}

func (c *passContext) PriorityLevel() int {
	return c.level
}
