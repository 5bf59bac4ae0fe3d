package scheduler

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when told to.
type FakeClock struct {
	now time.Time
	mu  sync.Mutex
}

// NewFakeClock returns a clock stopped at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t, which may be in the past.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Manual is a Scheduler whose callbacks fire only when the test calls Step
// or Fire.
type Manual struct {
	clock   *FakeClock
	pending map[ID]Callback
	next    ID
	fired   int
	mu      sync.Mutex
}

// NewManual creates a Manual scheduler stamping callbacks with clock.
func NewManual(clock *FakeClock) *Manual {
	return &Manual{
		clock:   clock,
		pending: make(map[ID]Callback),
	}
}

// Clock returns the clock the scheduler stamps callbacks with.
func (m *Manual) Clock() *FakeClock {
	return m.clock
}

func (m *Manual) Request(cb Callback) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.pending[m.next] = cb
	return m.next
}

func (m *Manual) Cancel(id ID) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// Step advances the clock by d, then fires every callback pending at that
// moment in request order. Callbacks requested while firing wait for the
// next Step. It returns the number fired.
func (m *Manual) Step(d time.Duration) int {
	now := m.clock.Advance(d)
	return m.Fire(now)
}

// Fire runs every pending callback with now without touching the clock.
func (m *Manual) Fire(now time.Time) int {
	m.mu.Lock()
	ids := make([]ID, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	cbs := make([]Callback, len(ids))
	for i, id := range ids {
		cbs[i] = m.pending[id]
		delete(m.pending, id)
	}
	m.fired += len(cbs)
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(now)
	}
	return len(cbs)
}

// Pending returns the number of callbacks waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Fired returns the total number of callbacks run so far.
func (m *Manual) Fired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}
