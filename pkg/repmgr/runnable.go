package repmgr

import (
	"errors"

	"go.uber.org/atomic"
)

var errAlreadyStarted = errors.New("runnable already started")

// Runnable is a handle on a background task.
//
// The task body runs on its own goroutine. Finished is a non-blocking poll;
// Join blocks until the body has returned and yields its result exactly once.
type Runnable struct {
	run  func() error
	done chan struct{}
	err  error

	started  atomic.Bool
	finished atomic.Bool
	joined   atomic.Bool
}

// NewRunnable creates a handle for run; nothing executes until Start
func NewRunnable(run func() error) *Runnable {
	return &Runnable{
		run:  run,
		done: make(chan struct{}),
	}
}

// Start launches the task
func (r *Runnable) Start() error {
	if r.run == nil {
		return ErrNotStarted
	}
	if !r.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}

	go func() {
		defer close(r.done)
		defer r.finished.Store(true)
		r.err = r.run()
	}()
	return nil
}

// Finished reports whether the task has marked itself done
func (r *Runnable) Finished() bool {
	return r.finished.Load()
}

// markFinished lets the task flag completion while it still holds the group lock,
// so that a concurrent entry point reaps it instead of signaling a departing task.
func (r *Runnable) markFinished() {
	r.finished.Store(true)
}

// Join waits for the task to return and hands back its result.
// A handle can be joined once; later calls return ErrAlreadyJoined.
func (r *Runnable) Join() error {
	if !r.started.Load() {
		return ErrNotStarted
	}
	if !r.joined.CompareAndSwap(false, true) {
		return ErrAlreadyJoined
	}
	<-r.done
	return r.err
}
