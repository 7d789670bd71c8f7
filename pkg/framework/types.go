package framework

import (
	"context"

	"github.com/robotalks/minut.go/pkg/clock"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Initializer is implemented by controllers needing one-time setup
// before the first pass. Init is called in the order controllers
// were added, lower priority levels first.
type Initializer interface {
	Init(InitContext) error
}

// InitContext is passed to Initializer.
type InitContext interface {
	clock.Source
	Context() context.Context
}

// Controller is polled once per pass and must not block.
type Controller interface {
	Control(ControlContext) error
}

// ControlContext describes the current pass.
type ControlContext interface {
	clock.Source
	Context() context.Context
	// Pass is the sequence number of the current pass.
	Pass() uint64
	// PriorityLevel is the level being polled.
	PriorityLevel() int
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefined priority levels. Level 0 is polled first.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvRoute runs the dispatcher pass.
	PrLvRoute = PrLvTop
	// PrLvCommon runs node services.
	PrLvCommon = PrLvHigh
	// PrLvControl runs application modules.
	PrLvControl = PrLvNormal
	// PrLvAcuate runs actuators.
	PrLvAcuate = PrLvLow
	// PrLvPostProc runs observers after every module had its turn.
	PrLvPostProc = PrLvIdle - 1
)

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}
