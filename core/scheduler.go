package core

import (
	"sync"
	"time"

	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/internal/logger"
)

// SchedState is the result of one scheduler iteration.
type SchedState int

const (
	// SchedRunning means the graph still has work in flight.
	SchedRunning SchedState = iota
	// SchedStopped means no task is producing anymore.
	SchedStopped
	// SchedError means an element reported a fatal error.
	SchedError
)

func (s SchedState) String() string {
	switch s {
	case SchedRunning:
		return "running"
	case SchedStopped:
		return "stopped"
	case SchedError:
		return "error"
	default:
		return "unknown"
	}
}

// Scheduler drives the elements of one scheduling group: it owns the
// tasks running element loops, tracks direct pad links inside the group,
// provides the group clock and implements pad-select. Elements of
// different schedulers may only be linked across a decoupled element.
type Scheduler interface {
	// Name identifies the scheduler group in logs.
	Name() string
	// AddElement registers an element with the group.
	AddElement(e *Element)
	// RemoveElement drops an element (and forgets its links).
	RemoveElement(e *Element)
	// PadLink records a direct in-group link.
	PadLink(src, sink *Pad)
	// PadUnlink forgets a direct in-group link.
	PadUnlink(src, sink *Pad)
	// NewTask creates a worker task owned by this scheduler.
	NewTask(name string, fn func()) *Task
	// Interrupt flags a fatal element error; Iterate returns SchedError
	// from then on.
	Interrupt(e *Element)
	// Iterate advances the graph one unit of work.
	Iterate() SchedState
	// PadSelect blocks until one of the sink pads has data, returning
	// that pad (nil on timeout).
	PadSelect(pads []*Pad, timeout time.Duration) *Pad
	// SetClock installs the group clock.
	SetClock(c clock.Clock)
	// Clock returns the group clock (nil until distributed).
	Clock() clock.Clock

	// dataArrived wakes PadSelect waiters; called by the chain path.
	dataArrived()
}

// GroupScheduler is the default scheduler: one task per active loop
// element, goroutine-backed.
type GroupScheduler struct {
	name string

	mu       sync.Mutex
	cond     *sync.Cond
	elements map[*Element]struct{}
	links    map[*Pad]*Pad
	tasks    []*Task
	clk      clock.Clock
	errored  *Element
}

// NewScheduler creates an empty scheduling group.
func NewScheduler(name string) *GroupScheduler {
	s := &GroupScheduler{
		name:     name,
		elements: make(map[*Element]struct{}),
		links:    make(map[*Pad]*Pad),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *GroupScheduler) Name() string { return s.name }

func (s *GroupScheduler) AddElement(e *Element) {
	s.mu.Lock()
	s.elements[e] = struct{}{}
	s.mu.Unlock()
}

func (s *GroupScheduler) RemoveElement(e *Element) {
	s.mu.Lock()
	delete(s.elements, e)
	for src, sink := range s.links {
		if src.Parent() == e || sink.Parent() == e {
			delete(s.links, src)
		}
	}
	s.mu.Unlock()
}

func (s *GroupScheduler) PadLink(src, sink *Pad) {
	s.mu.Lock()
	s.links[src] = sink
	s.mu.Unlock()
	logger.Debug("scheduler recorded link", "scheduler", s.name, "src", src.qualifiedName(), "sink", sink.qualifiedName())
}

func (s *GroupScheduler) PadUnlink(src, sink *Pad) {
	s.mu.Lock()
	delete(s.links, src)
	s.mu.Unlock()
}

// NumLinks returns the number of recorded in-group links.
func (s *GroupScheduler) NumLinks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *GroupScheduler) NewTask(name string, fn func()) *Task {
	t := NewTask(name, fn)
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t
}

func (s *GroupScheduler) Interrupt(e *Element) {
	s.mu.Lock()
	if s.errored == nil {
		s.errored = e
	}
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Iterate reports the group's progress: Error once an element failed,
// Running while any task is actively looping, Stopped otherwise. It
// yields briefly so callers can spin on it.
func (s *GroupScheduler) Iterate() SchedState {
	s.mu.Lock()
	errored := s.errored != nil
	running := false
	for _, t := range s.tasks {
		if t.Alive() && t.Running() {
			running = true
			break
		}
	}
	s.mu.Unlock()
	if errored {
		return SchedError
	}
	if running {
		// One unit of work is done by the tasks themselves; give them
		// the processor.
		time.Sleep(100 * time.Microsecond)
		return SchedRunning
	}
	return SchedStopped
}

func (s *GroupScheduler) dataArrived() {
	s.cond.Broadcast()
}

// PadSelect blocks the caller until any of the given sink pads has seen
// data since the last select, or the timeout expires.
func (s *GroupScheduler) PadSelect(pads []*Pad, timeout time.Duration) *Pad {
	deadline := time.Now().Add(timeout)
	stop := make(chan struct{})
	go func() {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			s.cond.Broadcast()
		case <-stop:
		}
	}()
	defer close(stop)

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for _, p := range pads {
			if p.takeSelectMark() {
				return p
			}
		}
		if !time.Now().Before(deadline) {
			return nil
		}
		s.cond.Wait()
	}
}

func (s *GroupScheduler) SetClock(c clock.Clock) {
	s.mu.Lock()
	s.clk = c
	s.mu.Unlock()
}

func (s *GroupScheduler) Clock() clock.Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clk
}
