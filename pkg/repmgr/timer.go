package repmgr

import (
	"sync"
	"time"
)

// WaitDeadline returns the absolute instant a wait started at now must end
func WaitDeadline(now time.Time, retry time.Duration) time.Time {
	return now.Add(retry)
}

// wakeup is a condition variable whose waits end at an absolute deadline.
// Broadcast and WaitUntil must be called with l held.
type wakeup struct {
	l  sync.Locker
	ch chan struct{}
}

func newWakeup(l sync.Locker) *wakeup {
	return &wakeup{l: l, ch: make(chan struct{})}
}

// Broadcast wakes every current waiter
func (w *wakeup) Broadcast() {
	close(w.ch)
	w.ch = make(chan struct{})
}

// WaitUntil releases l, blocks until a broadcast or the deadline, then reacquires l.
// It returns false when the deadline passed.
func (w *wakeup) WaitUntil(deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return false
	}

	ch := w.ch
	t := time.NewTimer(d)
	defer t.Stop()

	w.l.Unlock()
	defer w.l.Lock()

	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}
