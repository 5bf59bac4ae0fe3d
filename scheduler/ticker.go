package scheduler

import (
	"sync"
	"time"
)

// DefaultInterval is one refresh at 60 Hz.
const DefaultInterval = time.Second / 60

// Ticker fires each requested callback once, one interval after the
// request, stamping it with the clock's time at that moment.
type Ticker struct {
	clock    Clock
	pending  map[ID]*time.Timer
	interval time.Duration
	next     ID
	mu       sync.Mutex
}

// NewTicker creates a Ticker. A non-positive interval uses DefaultInterval
// and a nil clock uses the wall clock.
func NewTicker(interval time.Duration, clock Clock) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ticker{
		clock:    clock,
		interval: interval,
		pending:  make(map[ID]*time.Timer),
	}
}

// Interval returns the refresh interval.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

func (t *Ticker) Request(cb Callback) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	id := t.next
	t.pending[id] = time.AfterFunc(t.interval, func() {
		t.mu.Lock()
		_, live := t.pending[id]
		delete(t.pending, id)
		t.mu.Unlock()
		if live {
			cb(t.clock.Now())
		}
	})
	return id
}

func (t *Ticker) Cancel(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.pending[id]; ok {
		timer.Stop()
		delete(t.pending, id)
	}
}

// Stop cancels every pending callback.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, timer := range t.pending {
		timer.Stop()
		delete(t.pending, id)
	}
}

// Pending returns the number of callbacks that have not fired or been
// cancelled.
func (t *Ticker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
