package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Func is the body of a task. It runs holding the loop's run token.
type Func func(t *Task) (any, error)

// Loop schedules cooperative tasks.
type Loop struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	prefix string

	wg sync.WaitGroup

	// sched guards the run token. running is true while some task holds it;
	// ready lists the tasks waiting for it, oldest first.
	sched   sync.Mutex
	running bool
	ready   []chan struct{}

	mu    sync.Mutex
	tasks []*Task
	ran   bool
}

// NewLoop creates a loop whose tasks observe ctx. prefix names the tasks.
func NewLoop(ctx context.Context, prefix string) *Loop {
	if prefix == "" {
		prefix = "task"
	}
	lctx, cancel := context.WithCancelCause(ctx)
	l := &Loop{
		ctx:    lctx,
		cancel: cancel,
		prefix: prefix,
	}
	context.AfterFunc(lctx, l.interruptAll)
	return l
}

// Context returns the loop context. It is cancelled when Run finishes.
func (l *Loop) Context() context.Context { return l.ctx }

// Run spawns fn as the root task, waits for it, then cancels and drains every
// remaining task. Run may be called once per loop.
func (l *Loop) Run(fn Func) (any, error) {
	l.mu.Lock()
	if l.ran {
		l.mu.Unlock()
		return nil, ErrLoopClosed
	}
	l.ran = true
	l.mu.Unlock()

	root := l.Spawn(fn)
	root.awaited.Store(true)

	<-root.done

	l.cancel(ErrLoopClosed)
	l.wg.Wait()
	return root.result, root.err
}

// Spawn schedules fn as a new task. The task joins the back of the ready
// queue immediately and starts when the token reaches it.
func (l *Loop) Spawn(fn Func) *Task {
	t := &Task{
		loop: l,
		name: l.prefix + "-" + uuid.NewString(),
		done: make(chan struct{}),
	}

	l.mu.Lock()
	l.tasks = append(l.tasks, t)
	l.mu.Unlock()

	turn := l.enqueue()
	l.wg.Add(1)
	go l.run(t, fn, turn)
	return t
}

func (l *Loop) run(t *Task, fn Func, turn <-chan struct{}) {
	defer l.wg.Done()
	defer close(t.done)

	<-turn
	defer l.release()

	if err := l.ctx.Err(); err != nil {
		t.err = context.Cause(l.ctx)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.result = nil
			t.err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	t.result, t.err = fn(t)
}

// Len returns the number of tasks spawned on the loop, the root included.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Unobserved returns the errors of failed tasks that nothing awaited.
// Tasks cancelled because the loop closed are not reported.
func (l *Loop) Unobserved() []error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []error
	for _, t := range l.tasks {
		select {
		case <-t.done:
		default:
			continue
		}
		if t.err == nil || t.awaited.Load() || errors.Is(t.err, ErrLoopClosed) {
			continue
		}
		out = append(out, fmt.Errorf("%s: %w", t.name, t.err))
	}
	return out
}

// enqueue asks for the token. The returned channel receives once the token
// has been handed to the caller.
func (l *Loop) enqueue() <-chan struct{} {
	turn := make(chan struct{}, 1)
	l.sched.Lock()
	if l.running {
		l.ready = append(l.ready, turn)
	} else {
		l.running = true
		turn <- struct{}{}
	}
	l.sched.Unlock()
	return turn
}

func (l *Loop) acquire() { <-l.enqueue() }

// release hands the token to the oldest waiting task, or frees it when
// nobody is waiting.
func (l *Loop) release() {
	l.sched.Lock()
	if len(l.ready) == 0 {
		l.running = false
		l.sched.Unlock()
		return
	}
	next := l.ready[0]
	l.ready[0] = nil
	l.ready = l.ready[1:]
	l.sched.Unlock()
	next <- struct{}{}
}

// suspend releases the token, waits for ready or loop cancellation, then
// queues for the token behind every task already waiting.
func (l *Loop) suspend(ready <-chan struct{}) error {
	l.release()
	var err error
	select {
	case <-ready:
	case <-l.ctx.Done():
		err = context.Cause(l.ctx)
	}
	l.acquire()
	return err
}

func (l *Loop) interruptAll() {
	reason := context.Cause(l.ctx).Error()

	l.mu.Lock()
	tasks := append([]*Task(nil), l.tasks...)
	l.mu.Unlock()

	for _, t := range tasks {
		t.mu.Lock()
		hook := t.interrupt
		t.mu.Unlock()
		if hook != nil {
			hook(reason)
		}
	}
}

// sleepChan returns a channel closed after d.
func sleepChan(d time.Duration) (<-chan struct{}, func()) {
	ch := make(chan struct{})
	timer := time.AfterFunc(d, func() { close(ch) })
	return ch, func() { timer.Stop() }
}
