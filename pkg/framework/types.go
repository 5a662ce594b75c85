package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Poller is polled once per loop iteration. It must not block.
type Poller interface {
	Poll(PollContext) error
}

// PollFunc is the func form of Poller.
type PollFunc func(PollContext) error

// Poll implements Poller.
func (f PollFunc) Poll(ctx PollContext) error {
	return f(ctx)
}

// TimeSource provides the time of the current iteration.
type TimeSource interface {
	Time() time.Time
}

// PollContext provides the context of current iteration.
type PollContext interface {
	TimeSource
	// Context retrieves context.Context.
	Context() context.Context
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// PostRun injects post-run one-shot hooks at current
	// priority level. If called in post-run hooks, new hooks
	// are installed for next iteration.
	PostRun(hooks ...Poller)

	LoopControl
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefine priority levels
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvInput is the level draining input devices.
	PrLvInput = PrLvHigh
	// PrLvLink is the level exchanging frames between cores.
	PrLvLink = PrLvNormal
	// PrLvOutput is the level flushing output devices.
	PrLvOutput = PrLvLow
)

// LoopControl exposes access to the polling loop.
type LoopControl interface {
	// PreRunAt injects one-shot pre-run hooks at
	// specified priority level.
	PreRunAt(priorityLevel int, pollers ...Poller)
	// PostRunAt injects one-shot post-run hooks at
	// specified priority level.
	PostRunAt(priorityLevel int, pollers ...Poller)
	// TriggerNext schedules the next iteration to be executed
	// immediately after the current iteration.
	TriggerNext()
}
