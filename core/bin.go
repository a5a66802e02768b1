package core

import (
	"fmt"
	"sync"

	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/internal/errors"
)

// ElementProvider is anything that exposes an underlying Element: plain
// elements, bins, pipelines and composed element kinds.
type ElementProvider interface {
	Element() *Element
}

// binProvider lets container lookups recurse through wrapped bins.
type binProvider interface {
	bin() *Bin
}

// Bin is a container element. Its state propagates to children and its
// aggregate state is derived from theirs.
//
// Concurrency model: the child list is guarded by the bin mutex with a
// cookie; state propagation takes a snapshot copy so concurrent
// membership changes are tolerated.
type Bin struct {
	el *Element

	mu       sync.Mutex
	children []*Element
	cookie   uint64
}

// NewBin creates an empty bin.
func NewBin(name string) *Bin {
	b := &Bin{el: NewElement(name)}
	b.el.SetOwner(b)
	b.el.ChangeState = b.changeState
	b.el.SendEventHook = b.sendEvent
	b.el.SetClockHook = b.setClock
	b.el.ProvideClockHook = b.provideClock
	return b
}

func (b *Bin) bin() *Bin { return b }

// Element returns the bin's underlying element.
func (b *Bin) Element() *Element { return b.el }

// Name returns the bin name.
func (b *Bin) Name() string { return b.el.Name() }

// NumChildren returns the current child count.
func (b *Bin) NumChildren() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.children)
}

// Add puts an element into the bin. The element must be unparented and
// its name unique among the children; an added element without a
// scheduler of its own gets the bin's scheduler.
func (b *Bin) Add(ep ElementProvider) error {
	e := ep.Element()
	if e.Parent() != nil {
		return errors.NewCoreError("bin.add", fmt.Errorf("element %s already has a parent", e.Name()))
	}
	b.mu.Lock()
	for _, c := range b.children {
		if c.Name() == e.Name() {
			b.mu.Unlock()
			return errors.NewCoreError("bin.add", fmt.Errorf("element name %q already in bin %s", e.Name(), b.Name()))
		}
	}
	b.children = append(b.children, e)
	b.cookie++
	b.mu.Unlock()

	e.setParent(b)
	if e.Scheduler() == nil {
		if s := b.el.Scheduler(); s != nil {
			e.SetScheduler(s)
		}
	}
	b.el.Log().Debug("element added", "child", e.Name())
	return nil
}

// AddMany adds several elements, stopping at the first failure.
func (b *Bin) AddMany(eps ...ElementProvider) error {
	for _, ep := range eps {
		if err := b.Add(ep); err != nil {
			return err
		}
	}
	return nil
}

// Remove takes an element out of the bin, unparenting it.
func (b *Bin) Remove(ep ElementProvider) error {
	e := ep.Element()
	if e.Parent() != b {
		return errors.NewCoreError("bin.remove", fmt.Errorf("element %s is not a child of %s", e.Name(), b.Name()))
	}
	b.mu.Lock()
	for i, c := range b.children {
		if c == e {
			b.children = append(b.children[:i], b.children[i+1:]...)
			b.cookie++
			break
		}
	}
	b.mu.Unlock()
	e.setParent(nil)
	if s := e.Scheduler(); s != nil {
		s.RemoveElement(e)
	}
	return nil
}

// RemoveMany removes several elements, stopping at the first failure.
func (b *Bin) RemoveMany(eps ...ElementProvider) error {
	for _, ep := range eps {
		if err := b.Remove(ep); err != nil {
			return err
		}
	}
	return nil
}

// Elements returns a snapshot of the direct children.
func (b *Bin) Elements() []*Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Element, len(b.children))
	copy(out, b.children)
	return out
}

// ByName finds a child by name, recursing into contained bins.
func (b *Bin) ByName(name string) *Element {
	for _, c := range b.Elements() {
		if c.Name() == name {
			return c
		}
		if bp, ok := c.Owner().(binProvider); ok {
			if found := bp.bin().ByName(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// ByNameRecurseUp searches this bin and then the parent chain.
func (b *Bin) ByNameRecurseUp(name string) *Element {
	if found := b.ByName(name); found != nil {
		return found
	}
	if parent := b.el.Parent(); parent != nil {
		return parent.ByNameRecurseUp(name)
	}
	return nil
}

// ElementsByInterface collects child owners (recursively) implementing
// the given interface type.
func ElementsByInterface[T any](b *Bin) []T {
	var out []T
	for _, c := range b.Elements() {
		if o, ok := c.Owner().(T); ok {
			out = append(out, o)
		}
		if bp, ok := c.Owner().(binProvider); ok {
			out = append(out, ElementsByInterface[T](bp.bin())...)
		}
	}
	return out
}

// SetState drives the bin (and through propagation its children).
func (b *Bin) SetState(target State) StateReturn { return b.el.SetState(target) }

// State returns the bin element's current state.
func (b *Bin) State() State { return b.el.State() }

// AggregateState derives the children's combined state: the highest
// state any child currently holds, walking states from highest to
// lowest. An empty bin reports its own state.
func (b *Bin) AggregateState() State {
	children := b.Elements()
	if len(children) == 0 {
		return b.el.State()
	}
	var counts [StatePlaying + 1]int
	for _, c := range children {
		counts[c.State()]++
	}
	for s := StatePlaying; s >= StateNull; s-- {
		if counts[s] > 0 {
			return s
		}
	}
	return StateNull
}

// changeState propagates one transition step to all children from a
// snapshot of the list. Upward transitions run in reverse add order so
// sinks are ready before sources produce; downward transitions run in
// add order. A failing child rolls the already-transitioned children
// back and fails the bin; Async children leave the bin pending until
// childStateChanged observes completion.
func (b *Bin) changeState(el *Element, tr Transition) StateReturn {
	children := b.Elements()
	if tr.Up() {
		for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
			children[i], children[j] = children[j], children[i]
		}
	}

	overall := StateSuccess
	var done []*Element
	for _, c := range children {
		if c.LockedState() {
			continue
		}
		switch ret := c.SetState(tr.To); ret {
		case StateFailure:
			for _, d := range done {
				d.SetState(tr.From)
			}
			el.PostMessage(NewErrorMessage(c,
				errors.NewCoreError("state.transition", fmt.Errorf("child %s refused %s", c.Name(), tr)),
				"bin "+b.Name()+" state change"))
			return StateFailure
		case StateAsync:
			overall = StateAsync
		case StateNoPreroll:
			if overall != StateAsync {
				overall = StateNoPreroll
			}
			done = append(done, c)
		default:
			done = append(done, c)
		}
	}
	return overall
}

// childStateChanged is called by children completing an Async
// transition. When every child reached the bin's pending state the bin
// commits and notifies its own parent.
func (b *Bin) childStateChanged(child *Element) {
	b.el.stateMu.Lock()
	pending := b.el.pending
	if pending == StateVoid {
		b.el.stateMu.Unlock()
		return
	}
	for _, c := range b.Elements() {
		if c.LockedState() {
			continue
		}
		if c.State() != pending {
			b.el.stateMu.Unlock()
			return
		}
	}
	tr := Transition{From: b.el.current, To: pending}
	b.el.current = pending
	b.el.pending = StateVoid
	b.el.lastRet = StateSuccess
	b.el.notifyLocked()
	b.el.stateMu.Unlock()

	b.el.postStateChanged(tr)
	if parent := b.el.Parent(); parent != nil {
		parent.childStateChanged(b.el)
	}
}

// sendEvent forwards an event to children until one handles it.
// Upstream events try the most-downstream children first (reverse add
// order); downstream events go in add order.
func (b *Bin) sendEvent(el *Element, ev *event.Event) bool {
	children := b.Elements()
	if upstreamEvent(ev.Type()) {
		for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
			children[i], children[j] = children[j], children[i]
		}
	}
	for _, c := range children {
		if c.SendEvent(ev.Ref()) {
			ev.Unref()
			return true
		}
	}
	ev.Unref()
	return false
}

// setClock distributes a clock to every child; any refusal refuses the
// clock for the whole bin.
func (b *Bin) setClock(el *Element, c clock.Clock) bool {
	for _, child := range b.Elements() {
		if !child.SetClock(c) {
			return false
		}
	}
	return true
}

// provideClock asks children for a clock, preferring upstream-most
// providers (elements without sink pads).
func (b *Bin) provideClock(el *Element) clock.Clock {
	var fallback clock.Clock
	for _, c := range b.Elements() {
		if clk := c.ProvideClock(); clk != nil {
			_, nSink := c.NumPads()
			if nSink == 0 {
				return clk
			}
			if fallback == nil {
				fallback = clk
			}
		}
	}
	return fallback
}

// SetBaseTime distributes a base time to the bin and all children.
func (b *Bin) SetBaseTime(t clock.Time) {
	b.el.SetBaseTime(t)
	for _, c := range b.Elements() {
		c.SetBaseTime(t)
		if bp, ok := c.Owner().(binProvider); ok {
			bp.bin().SetBaseTime(t)
		}
	}
}
