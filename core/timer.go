package dialogue

import "time"

// Stopper cancels a scheduled callback. It reports whether the call stopped
// the callback before it ran, like [time.Timer.Stop].
type Stopper interface {
	Stop() bool
}

// Timer schedules a callback after a delay.
type Timer interface {
	AfterFunc(d time.Duration, fn func()) Stopper
}

type systemTimer struct{}

func (systemTimer) AfterFunc(d time.Duration, fn func()) Stopper {
	return time.AfterFunc(d, fn)
}

// loopTimer delivers timer callbacks on the event loop instead of the
// timer's own goroutine.
type loopTimer struct {
	timer Timer
	post  func(func()) bool
}

func (t loopTimer) AfterFunc(d time.Duration, fn func()) Stopper {
	return t.timer.AfterFunc(d, func() { t.post(fn) })
}
