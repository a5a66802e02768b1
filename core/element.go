package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/format"
	"github.com/avfoundry/go-streamline/internal/errors"
	"github.com/avfoundry/go-streamline/internal/logger"
	"github.com/avfoundry/go-streamline/internal/metrics"
)

// Element is a named node in the pipeline graph: a list of pads, a state
// machine, and an owning scheduler reference. Concrete element kinds
// (bins, sources, sinks) configure behavior through the exported hook
// fields; every hook defaults to core behavior when nil.
//
// Locking: the object mutex guards the pad list (with a cookie that
// invalidates iterators on membership change), flags and clock fields.
// The state mutex serializes transitions; waiters block on the state
// notify channel which is re-armed on every commit.
type Element struct {
	mu     sync.Mutex
	name   string
	parent *Bin
	owner  any

	stateMu     sync.Mutex
	current     State
	pending     State
	lastRet     StateReturn
	stateNotify chan struct{}

	pads       []*Pad
	padsCookie uint64
	nSrc       int
	nSink      int

	sched       Scheduler
	clk         clock.Clock
	baseTime    clock.Time
	decoupled   bool
	lockedState bool
	eos         bool
	errored     bool
	bus         *Bus

	log *slog.Logger

	// ChangeState performs one single-step transition. The state machine
	// commits the step itself on Success/NoPreroll; Async elements call
	// CommitState later from their streaming thread.
	ChangeState func(e *Element, t Transition) StateReturn
	// SendEventHook overrides event delivery to the element.
	SendEventHook func(e *Element, ev *event.Event) bool
	// QueryHook overrides query handling on the element.
	QueryHook func(e *Element, q *Query) bool
	// SetClockHook validates/distributes a clock; returning false refuses it.
	SetClockHook func(e *Element, c clock.Clock) bool
	// ProvideClockHook lets the element offer a clock to the pipeline.
	ProvideClockHook func(e *Element) clock.Clock
}

// NewElement creates an element in the Null state.
func NewElement(name string) *Element {
	e := &Element{
		name:        name,
		current:     StateNull,
		pending:     StateVoid,
		lastRet:     StateSuccess,
		baseTime:    0,
		stateNotify: make(chan struct{}),
	}
	e.log = logger.WithElement(logger.Logger(), name)
	return e
}

// Name returns the element name (unique within its parent).
func (e *Element) Name() string { return e.name }

// Element returns the receiver; it makes *Element satisfy the
// ElementProvider interface alongside wrapping types.
func (e *Element) Element() *Element { return e }

// Owner returns the wrapping value for composed element kinds (a *Bin, a
// base source, ...) or nil for a plain element.
func (e *Element) Owner() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// SetOwner records the wrapping value. Called once by composing
// constructors.
func (e *Element) SetOwner(o any) {
	e.mu.Lock()
	e.owner = o
	e.mu.Unlock()
}

// Parent returns the containing bin or nil.
func (e *Element) Parent() *Bin {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

func (e *Element) setParent(b *Bin) {
	e.mu.Lock()
	e.parent = b
	e.mu.Unlock()
}

// Log returns the element's structured logger.
func (e *Element) Log() *slog.Logger { return e.log }

// --- Pad management ---

// AddPad attaches a pad to the element. Pad names are unique per
// element; adding bumps the pad cookie so iterators re-sync.
func (e *Element) AddPad(p *Pad) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.pads {
		if existing.name == p.name {
			return errors.NewCoreError("element.add_pad", fmt.Errorf("pad %q already exists on %s", p.name, e.name))
		}
	}
	p.mu.Lock()
	p.parent = e
	p.mu.Unlock()
	e.pads = append(e.pads, p)
	e.padsCookie++
	switch p.dir {
	case DirSource:
		e.nSrc++
	case DirSink:
		e.nSink++
	}
	return nil
}

// RemovePad detaches a pad, unlinking it first.
func (e *Element) RemovePad(p *Pad) error {
	p.Unlink()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.pads {
		if existing == p {
			e.pads = append(e.pads[:i], e.pads[i+1:]...)
			e.padsCookie++
			switch p.dir {
			case DirSource:
				e.nSrc--
			case DirSink:
				e.nSink--
			}
			p.mu.Lock()
			p.parent = nil
			p.mu.Unlock()
			return nil
		}
	}
	return errors.NewCoreError("element.remove_pad", fmt.Errorf("pad %q not on %s", p.name, e.name))
}

// Pad returns the named pad or nil.
func (e *Element) Pad(name string) *Pad {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pads {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Pads returns a snapshot of the pad list.
func (e *Element) Pads() []*Pad {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Pad, len(e.pads))
	copy(out, e.pads)
	return out
}

// PadsCookie returns the monotonic counter invalidated on pad
// membership changes.
func (e *Element) PadsCookie() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.padsCookie
}

// NumPads returns the per-direction pad counts (source, sink).
func (e *Element) NumPads() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nSrc, e.nSink
}

// SrcPads returns a snapshot of the source pads.
func (e *Element) SrcPads() []*Pad { return e.padsByDir(DirSource) }

// SinkPads returns a snapshot of the sink pads.
func (e *Element) SinkPads() []*Pad { return e.padsByDir(DirSink) }

func (e *Element) padsByDir(d Direction) []*Pad {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*Pad
	for _, p := range e.pads {
		if p.dir == d {
			out = append(out, p)
		}
	}
	return out
}

// --- Flags, scheduler, clock ---

// Scheduler returns the owning scheduler (possibly inherited).
func (e *Element) Scheduler() Scheduler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched
}

// SetScheduler records the owning scheduler.
func (e *Element) SetScheduler(s Scheduler) {
	e.mu.Lock()
	e.sched = s
	e.mu.Unlock()
	if s != nil {
		s.AddElement(e)
	}
}

// Decoupled reports whether the element may bridge two schedulers.
func (e *Element) Decoupled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decoupled
}

// SetDecoupled marks the element as a scheduler bridge (queues).
func (e *Element) SetDecoupled(d bool) {
	e.mu.Lock()
	e.decoupled = d
	e.mu.Unlock()
}

// LockedState reports whether the element ignores parent state
// propagation.
func (e *Element) LockedState() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockedState
}

// SetLockedState controls parent state propagation for this element.
func (e *Element) SetLockedState(l bool) {
	e.mu.Lock()
	e.lockedState = l
	e.mu.Unlock()
}

// EOS reports whether the element latched end-of-stream.
func (e *Element) EOS() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eos
}

func (e *Element) setEOS(v bool) {
	e.mu.Lock()
	e.eos = v
	e.mu.Unlock()
}

// Errored reports whether the element posted a fatal error.
func (e *Element) Errored() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errored
}

// Clock returns the clock distributed to this element (nil before
// distribution).
func (e *Element) Clock() clock.Clock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clk
}

// SetClock offers a clock to the element; the hook may refuse it.
func (e *Element) SetClock(c clock.Clock) bool {
	if e.SetClockHook != nil {
		if !e.SetClockHook(e, c) {
			return false
		}
	}
	e.mu.Lock()
	e.clk = c
	e.mu.Unlock()
	return true
}

// ProvideClock returns a clock this element can drive the pipeline with,
// or nil.
func (e *Element) ProvideClock() clock.Clock {
	if e.ProvideClockHook != nil {
		return e.ProvideClockHook(e)
	}
	return nil
}

// BaseTime returns the element's base time offset.
func (e *Element) BaseTime() clock.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseTime
}

// SetBaseTime records the distributed base time.
func (e *Element) SetBaseTime(t clock.Time) {
	e.mu.Lock()
	e.baseTime = t
	e.mu.Unlock()
}

// --- Bus and messages ---

// SetBus attaches a message bus (done by the owning pipeline).
func (e *Element) SetBus(b *Bus) {
	e.mu.Lock()
	e.bus = b
	e.mu.Unlock()
}

// PostMessage delivers a message to the pipeline bus, bubbling through
// parents until a bus is found. Returns false when no bus is reachable.
func (e *Element) PostMessage(m *Message) bool {
	e.mu.Lock()
	b := e.bus
	parent := e.parent
	e.mu.Unlock()
	if b != nil {
		b.Post(m)
		return true
	}
	if parent != nil {
		return parent.Element().PostMessage(m)
	}
	return false
}

// ErrorMessage posts an ERROR message with the given domain error and
// debug string, latches the element error flag and interrupts the
// scheduler. The core never terminates the process; the application
// decides.
func (e *Element) ErrorMessage(err error, debug string) {
	e.mu.Lock()
	e.errored = true
	sched := e.sched
	e.mu.Unlock()
	e.log.Error("element error", "error", err, "debug", debug)
	e.PostMessage(NewErrorMessage(e, err, debug))
	if sched != nil {
		sched.Interrupt(e)
	}
}

// --- State machine ---

// State returns the current state.
func (e *Element) State() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.current
}

// Pending returns the pending state (StateVoid when settled).
func (e *Element) Pending() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.pending
}

// SetState drives the element to the target state with repeated
// single-step transitions.
func (e *Element) SetState(target State) StateReturn {
	if target == StateVoid {
		return StateFailure
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.setStateLocked(target)
}

func (e *Element) setStateLocked(target State) StateReturn {
	overall := StateSuccess
	for {
		if e.current == target {
			e.pending = StateVoid
			e.lastRet = overall
			e.notifyLocked()
			return overall
		}
		var next State
		if target > e.current {
			next = e.current + 1
		} else {
			next = e.current - 1
		}
		e.pending = target
		tr := Transition{From: e.current, To: next}
		ret := StateSuccess
		if e.ChangeState != nil {
			ret = e.ChangeState(e, tr)
		}
		switch ret {
		case StateFailure:
			// Roll back the pending state; current is unchanged.
			e.pending = StateVoid
			e.lastRet = StateFailure
			e.notifyLocked()
			e.log.Warn("state change failed", "transition", tr.String())
			return StateFailure
		case StateAsync:
			e.lastRet = StateAsync
			return StateAsync
		case StateNoPreroll:
			overall = StateNoPreroll
			fallthrough
		default:
			e.current = next
			metrics.StateChanges.Inc()
			e.postStateChanged(tr)
		}
	}
}

// CommitState completes a transition previously returned as Async. It
// moves the element to its pending state and wakes waiters. Called from
// the element's streaming thread.
func (e *Element) CommitState(ret StateReturn) {
	e.stateMu.Lock()
	if e.pending == StateVoid {
		e.stateMu.Unlock()
		return
	}
	tr := Transition{From: e.current, To: e.pending}
	e.current = e.pending
	e.pending = StateVoid
	e.lastRet = ret
	metrics.StateChanges.Inc()
	e.notifyLocked()
	e.stateMu.Unlock()
	e.postStateChanged(tr)
	if parent := e.Parent(); parent != nil {
		parent.childStateChanged(e)
	}
}

// AbortState cancels a pending transition without committing it.
func (e *Element) AbortState() {
	e.stateMu.Lock()
	if e.pending != StateVoid {
		e.pending = StateVoid
		e.lastRet = StateFailure
		e.notifyLocked()
	}
	e.stateMu.Unlock()
}

// GetState reports (current, pending, last return). With a pending
// transition it blocks up to timeout for completion; zero timeout
// returns immediately.
func (e *Element) GetState(timeout time.Duration) (State, State, StateReturn) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		e.stateMu.Lock()
		if e.pending == StateVoid {
			cur, ret := e.current, e.lastRet
			e.stateMu.Unlock()
			return cur, StateVoid, ret
		}
		cur, pend := e.current, e.pending
		ch := e.stateNotify
		e.stateMu.Unlock()
		if timeout == 0 {
			return cur, pend, StateAsync
		}
		select {
		case <-ch:
		case <-deadline:
			return cur, pend, StateAsync
		}
	}
}

// notifyLocked wakes GetState waiters; called with stateMu held.
func (e *Element) notifyLocked() {
	close(e.stateNotify)
	e.stateNotify = make(chan struct{})
}

func (e *Element) postStateChanged(tr Transition) {
	e.PostMessage(NewStateChangedMessage(e, tr.From, tr.To))
	e.log.Debug("state changed", "transition", tr.String())
}

// --- Events, queries, seeking ---

// SendEvent delivers an event to the element. Upstream events go to the
// sink pads (and from there upstream via their peers); downstream events
// leave through the source pads.
func (e *Element) SendEvent(ev *event.Event) bool {
	if ev == nil {
		return false
	}
	ev.Source = e.name
	if e.SendEventHook != nil {
		return e.SendEventHook(e, ev)
	}
	var pads []*Pad
	if upstreamEvent(ev.Type()) {
		pads = e.SinkPads()
	} else {
		pads = e.SrcPads()
	}
	handled := false
	for _, p := range pads {
		if p.SendEvent(ev.Ref()) {
			handled = true
		}
	}
	ev.Unref()
	return handled
}

// Seek builds and sends a seek event.
func (e *Element) Seek(rate float64, f format.Format, flags event.SeekFlags, startType event.SeekType, start int64, stopType event.SeekType, stop int64) bool {
	return e.SendEvent(event.NewSeek(rate, f, flags, startType, start, stopType, stop))
}

// Query asks the element; the hook wins, else source pads with a query
// function are tried in order.
func (e *Element) Query(q *Query) bool {
	if e.QueryHook != nil {
		return e.QueryHook(e, q)
	}
	for _, p := range e.SrcPads() {
		if p.Query != nil && p.Query(p, q) {
			return true
		}
	}
	return false
}
