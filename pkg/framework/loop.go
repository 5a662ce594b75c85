package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the polling interval when Loop.Interval is zero.
const DefaultInterval = 10 * time.Millisecond

// Loop polls devices and links at priority levels, the way a firmware
// main loop spins over its peripherals.
type Loop struct {
	Interval time.Duration

	pollers [PriorityLevels]pollerList
	runners []Runnable

	wakeOnce sync.Once
	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopCtl struct {
	*Loop
}

type loopIteration struct {
	loopCtl
	ctx           context.Context
	time          time.Time
	priorityLevel int
}

type pollerList struct {
	preHooks  []Poller
	pollers   []Poller
	postHooks []Poller
	lock      sync.Mutex
}

var (
	loopCtxKey = &Loop{}
)

// LoopCtlFrom gets LoopControl from context.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// PollCtxFrom gets PollContext from context.
func PollCtxFrom(ctx context.Context) PollContext {
	return ctx.Value(loopCtxKey).(PollContext)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddPoller registers pollers to the loop. Pollers which are also
// Runnable are started with the loop.
func (l *Loop) AddPoller(priorityLevel int, pollers ...Poller) *Loop {
	lst := &l.pollers[priorityLevel]
	lst.pollers = append(lst.pollers, pollers...)
	for _, p := range pollers {
		if runner, ok := p.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

func (l *Loop) wakeUp() chan struct{} {
	l.wakeOnce.Do(func() {
		l.wakeUpCh = make(chan struct{}, 1)
	})
	return l.wakeUpCh
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	wakeUpCh := l.wakeUp()

	runCtx, cancel := context.WithCancel(context.WithValue(ctx, loopCtxKey, &loopCtl{l}))
	runner := NewRunnerWith(runCtx)
	runner.Go(l.runners...)
	defer func() {
		cancel()
		if err := runner.Wait(); err != nil {
			glog.Errorf("loop runners: %v", err)
		}
	}()

	interval := l.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.RunOnce(ctx)
		case <-wakeUpCh:
			l.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single iteration over all priority levels.
func (l *Loop) RunOnce(ctx context.Context) {
	iter := &loopIteration{loopCtl: loopCtl{l}, time: time.Now()}
	iter.ctx = context.WithValue(ctx, loopCtxKey, iter)
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		l.pollers[i].run(iter)
	}
}

// PreRunAt implements LoopControl.
func (l *Loop) PreRunAt(priorityLevel int, hooks ...Poller) {
	lst := &l.pollers[priorityLevel]
	lst.lock.Lock()
	lst.preHooks = append(lst.preHooks, hooks...)
	lst.lock.Unlock()
}

// PostRunAt implements LoopControl.
func (l *Loop) PostRunAt(priorityLevel int, hooks ...Poller) {
	lst := &l.pollers[priorityLevel]
	lst.lock.Lock()
	lst.postHooks = append(lst.postHooks, hooks...)
	lst.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUp() <- struct{}{}:
	default:
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) PostRun(hooks ...Poller) {
	t.PostRunAt(t.priorityLevel, hooks...)
}

func (c *pollerList) run(iter *loopIteration) {
	c.lock.Lock()
	hooks := c.preHooks
	c.preHooks = nil
	c.lock.Unlock()
	runPollers(iter, hooks)
	runPollers(iter, c.pollers)
	c.lock.Lock()
	hooks, c.postHooks = c.postHooks, nil
	c.lock.Unlock()
	runPollers(iter, hooks)
}

func runPollers(iter *loopIteration, pollers []Poller) {
	for _, p := range pollers {
		if err := p.Poll(iter); err != nil {
			glog.Errorf("poller error at level %d: %v", iter.priorityLevel, err)
		}
	}
}
