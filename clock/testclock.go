package clock

import "sync"

// TestClock is a manually advanced clock for deterministic tests.
// Waits block until Advance/Set moves the clock past their target or
// they are unscheduled.
type TestClock struct {
	mu   sync.Mutex
	cond *sync.Cond
	now  Time
}

// NewTestClock creates a test clock starting at the given time.
func NewTestClock(start Time) *TestClock {
	c := &TestClock{now: start}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *TestClock) Now() Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to an absolute time and wakes pending waits.
func (c *TestClock) Set(t Time) {
	c.mu.Lock()
	if t > c.now {
		c.now = t
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Advance moves the clock forward by d and wakes pending waits.
func (c *TestClock) Advance(d Time) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
	c.cond.Broadcast()
}

type testEntry struct {
	clock  *TestClock
	target Time

	mu          sync.Mutex
	unscheduled bool
}

func (c *TestClock) NewSingleShot(t Time) ID {
	return &testEntry{clock: c, target: t}
}

func (e *testEntry) Target() Time { return e.target }

func (e *testEntry) Wait() WaitResult {
	c := e.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now >= e.target {
		if e.isUnscheduled() {
			return WaitUnscheduled
		}
		return WaitEarly
	}
	for c.now < e.target {
		if e.isUnscheduled() {
			return WaitUnscheduled
		}
		c.cond.Wait()
	}
	return WaitOK
}

func (e *testEntry) isUnscheduled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unscheduled
}

func (e *testEntry) Unschedule() {
	e.mu.Lock()
	e.unscheduled = true
	e.mu.Unlock()
	e.clock.cond.Broadcast()
}
