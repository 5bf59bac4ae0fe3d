package scheduler

import "time"

// ID identifies a scheduled callback. The zero ID is never issued.
type ID uint64

// Callback runs once at a refresh boundary with the time observed there.
type Callback func(now time.Time)

// Scheduler requests and cancels one-shot refresh callbacks.
// Callbacks may run on any goroutine.
type Scheduler interface {
	Request(cb Callback) ID
	Cancel(id ID)
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
