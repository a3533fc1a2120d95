// Package task runs one asynchronous call at a time on behalf of a view and
// drops results that arrive after the view has gone away.
package task

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle of the current call.
type State int

const (
	Idle State = iota
	Loading
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return "unknown"
}

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("task closed")

// Task holds the outcome of the latest call. Starting a new call cancels
// the previous one; a cancelled or superseded call never updates the Task.
type Task[T any] struct {
	parent context.Context

	mu       sync.Mutex
	state    State
	value    T
	err      error
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	onChange func(State)
	wg       sync.WaitGroup
}

// New creates an idle task. Calls derive their context from parent.
// onChange, if non-nil, is called with every applied state change.
func New[T any](parent context.Context, onChange func(State)) *Task[T] {
	return &Task[T]{parent: parent, onChange: onChange}
}

// Start runs fn in a new goroutine, superseding any call in flight.
func (t *Task[T]) Start(fn func(ctx context.Context) (T, error)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(t.parent)
	t.gen++
	gen := t.gen
	t.cancel = cancel
	t.state = Loading
	t.err = nil
	t.wg.Add(1)
	t.mu.Unlock()
	t.changed(Loading)

	go func() {
		defer t.wg.Done()
		defer cancel()
		v, err := fn(ctx)
		t.finish(gen, v, err)
	}()
	return nil
}

func (t *Task[T]) finish(gen uint64, v T, err error) {
	t.mu.Lock()
	if t.closed || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.cancel = nil
	if err != nil {
		t.state, t.err = Error, err
	} else {
		t.state, t.value = Success, v
	}
	state := t.state
	t.mu.Unlock()
	t.changed(state)
}

func (t *Task[T]) changed(s State) {
	if t.onChange != nil {
		t.onChange(s)
	}
}

// Result returns the current state with the value of the last successful
// call and the error of the last failed one.
func (t *Task[T]) Result() (State, T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.value, t.err
}

// Close cancels the call in flight. Nothing applied after Close is visible.
func (t *Task[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Wait blocks until every started call has returned.
func (t *Task[T]) Wait() {
	t.wg.Wait()
}
