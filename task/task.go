package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task is one unit of cooperative work.
type Task struct {
	loop *Loop
	name string
	done chan struct{}

	result any
	err    error

	awaited atomic.Bool

	mu        sync.Mutex
	interrupt func(reason string)
	locals    sync.Map
}

// Name returns the unique task name.
func (t *Task) Name() string { return t.name }

// Loop returns the loop that owns t.
func (t *Task) Loop() *Loop { return t.loop }

// Context returns the loop context.
func (t *Task) Context() context.Context { return t.loop.ctx }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result returns the task outcome. It is only meaningful after Done is closed.
func (t *Task) Result() (any, error) {
	select {
	case <-t.done:
		return t.result, t.err
	default:
		return nil, nil
	}
}

// SetInterrupt registers fn to be called when the loop is cancelled while
// the task may be running.
func (t *Task) SetInterrupt(fn func(reason string)) {
	t.mu.Lock()
	t.interrupt = fn
	t.mu.Unlock()
}

// SetLocal stores a value on the task.
func (t *Task) SetLocal(key, value any) { t.locals.Store(key, value) }

// Local returns a value stored with SetLocal.
func (t *Task) Local(key any) any {
	v, _ := t.locals.Load(key)
	return v
}

// Await suspends t until other finishes and returns other's outcome. Awaiting
// a finished task returns immediately without giving up the token.
func (t *Task) Await(other *Task) (any, error) {
	if other == t {
		return nil, ErrSelfAwait
	}
	if other.loop != t.loop {
		return nil, ErrForeignTask
	}
	other.awaited.Store(true)

	select {
	case <-other.done:
		return other.result, other.err
	default:
	}

	if err := t.loop.suspend(other.done); err != nil {
		return nil, err
	}
	return other.result, other.err
}

// Sleep suspends t for at least d. Non-positive durations yield.
func (t *Task) Sleep(d time.Duration) error {
	if d <= 0 {
		return t.Yield()
	}
	ch, stop := sleepChan(d)
	defer stop()
	return t.loop.suspend(ch)
}

// Yield moves t to the back of the ready queue: every task already waiting
// for the token runs before t resumes.
func (t *Task) Yield() error {
	t.loop.release()
	t.loop.acquire()
	return context.Cause(t.loop.ctx)
}
