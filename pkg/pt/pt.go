// Package pt implements stack-less cooperative routines (protothreads).
//
// A routine is an ordinary function taking *T. It keeps its resume point
// in T as an integer label and switches on it when stepped:
//
//	func step(t *pt.T) pt.Status {
//		switch t.At() {
//		case 0:
//			// entry
//			fallthrough
//		case 1:
//			if !t.WaitUntil(1, ready()) {
//				return pt.Waiting
//			}
//			consume()
//		}
//		return t.Restart()
//	}
//
// Labels are chosen by the routine; 0 is always the start.
package pt

// Status is the outcome of one step.
type Status int

const (
	// Waiting means the routine is parked on a wait condition.
	Waiting Status = iota
	// Yielded means the routine gave up control voluntarily.
	Yielded
	// Exited means the routine left early and was reset.
	Exited
	// Ended means the routine ran to completion and was reset.
	Ended
)

// Running reports whether the routine is still in progress.
func (s Status) Running() bool {
	return s == Waiting || s == Yielded
}

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Yielded:
		return "yielded"
	case Exited:
		return "exited"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// T is the resume context of one routine.
type T struct {
	lc int
}

// At returns the label to resume from.
func (t *T) At() int { return t.lc }

// Init rewinds the routine to its start.
func (t *T) Init() { t.lc = 0 }

// WaitUntil records label as the resume point and returns cond.
// When it returns false the caller must return Waiting; the next step
// resumes at label and evaluates the condition again.
func (t *T) WaitUntil(label int, cond bool) bool {
	t.lc = label
	return cond
}

// YieldWhile records label as the resume point and returns cond.
// When it returns true the caller must return Yielded.
func (t *T) YieldWhile(label int, cond bool) bool {
	t.lc = label
	return cond
}

// Restart rewinds to the start. The routine runs again on the next step.
func (t *T) Restart() Status {
	t.lc = 0
	return Waiting
}

// Exit rewinds and reports an early exit.
func (t *T) Exit() Status {
	t.lc = 0
	return Exited
}

// End rewinds and reports completion.
func (t *T) End() Status {
	t.lc = 0
	return Ended
}

// Func is the body of a routine.
type Func func(*T) Status

// Thread is anything that can be stepped once.
type Thread interface {
	Step() Status
}

// Proc binds a context to its body.
type Proc struct {
	T
	Fn Func
}

// New creates a Proc for fn.
func New(fn Func) *Proc {
	return &Proc{Fn: fn}
}

// Step implements Thread.
func (p *Proc) Step() Status {
	return p.Fn(&p.T)
}

// Schedule steps th once and reports whether it is still running.
func Schedule(th Thread) bool {
	return th.Step().Running()
}
