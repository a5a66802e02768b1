package core

import (
	"fmt"
	"sync"

	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/internal/errors"
)

// Pipeline is a toplevel bin: it owns the application message bus,
// selects and distributes the clock, and manages stream time and base
// time across state changes and flushing seeks.
type Pipeline struct {
	*Bin

	mu                 sync.Mutex
	bus                *Bus
	sched              Scheduler
	fixedClock         clock.Clock
	autoClock          bool
	streamTime         clock.Time
	delay              clock.Time
	autoFlushBus       bool
	streamTimeDisabled bool
}

// NewPipeline creates a pipeline with its own bus and scheduler group.
func NewPipeline(name string) *Pipeline {
	b := NewBin(name)
	p := &Pipeline{
		Bin:          b,
		bus:          NewBus(),
		sched:        NewScheduler(name),
		autoClock:    true,
		autoFlushBus: true,
	}
	b.el.SetOwner(p)
	b.el.SetBus(p.bus)
	b.el.SetScheduler(p.sched)
	b.el.ChangeState = p.changeState
	b.el.SendEventHook = p.sendEvent
	return p
}

// Bus returns the pipeline's message bus.
func (p *Pipeline) Bus() *Bus { return p.bus }

// Scheduler returns the pipeline's scheduler group.
func (p *Pipeline) Scheduler() Scheduler { return p.sched }

// SetClock fixes the clock used at the next transition to Playing.
func (p *Pipeline) SetClock(c clock.Clock) {
	p.mu.Lock()
	p.fixedClock = c
	p.autoClock = c == nil
	p.mu.Unlock()
}

// UseClock forces the given clock, disabling automatic selection.
func (p *Pipeline) UseClock(c clock.Clock) { p.SetClock(c) }

// AutoClock re-enables automatic clock selection.
func (p *Pipeline) AutoClock() {
	p.mu.Lock()
	p.fixedClock = nil
	p.autoClock = true
	p.mu.Unlock()
}

// SetNewStreamTime seeds the stream time used for the next base-time
// distribution. Passing clock.None disables base-time management
// entirely and suppresses stream-time resets on flushing seeks.
func (p *Pipeline) SetNewStreamTime(t clock.Time) {
	p.mu.Lock()
	if t == clock.None {
		p.streamTimeDisabled = true
	} else {
		p.streamTimeDisabled = false
		p.streamTime = t
	}
	p.mu.Unlock()
}

// StreamTime returns the last sampled stream time.
func (p *Pipeline) StreamTime() clock.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamTime
}

// SetDelay adds a fixed delay to the distributed base time.
func (p *Pipeline) SetDelay(d clock.Time) {
	p.mu.Lock()
	p.delay = d
	p.mu.Unlock()
}

// SetAutoFlushBus controls whether the bus is flushed on Ready→Null.
func (p *Pipeline) SetAutoFlushBus(auto bool) {
	p.mu.Lock()
	p.autoFlushBus = auto
	p.mu.Unlock()
}

// selectClock picks the pipeline clock: the fixed clock when set, else a
// clock provided by the upstream-most child, else the system clock.
func (p *Pipeline) selectClock() clock.Clock {
	p.mu.Lock()
	fixed := p.fixedClock
	auto := p.autoClock
	p.mu.Unlock()
	if fixed != nil {
		return fixed
	}
	if auto {
		if c := p.provideClock(p.el); c != nil {
			return c
		}
	}
	return clock.System()
}

// changeState wraps the bin propagation with the pipeline extras: stream
// time bookkeeping, clock selection and base-time distribution.
func (p *Pipeline) changeState(el *Element, tr Transition) StateReturn {
	switch {
	case tr.From == StateNull && tr.To == StateReady:
		p.bus.SetFlushing(false)

	case tr.From == StateReady && tr.To == StatePaused:
		p.mu.Lock()
		if !p.streamTimeDisabled {
			p.streamTime = 0
		}
		p.mu.Unlock()

	case tr.From == StatePaused && tr.To == StatePlaying:
		clk := p.selectClock()
		if !el.SetClock(clk) {
			el.PostMessage(NewErrorMessage(el,
				errors.NewClockError("pipeline.set_clock", fmt.Errorf("clock refused by a child of %s", p.Name())),
				"clock distribution"))
			return StateFailure
		}
		p.sched.SetClock(clk)
		p.mu.Lock()
		disabled := p.streamTimeDisabled
		st := p.streamTime
		delay := p.delay
		p.mu.Unlock()
		if !disabled {
			base := clk.Now() - st + delay
			p.SetBaseTime(base)
		}
	}

	ret := p.Bin.changeState(el, tr)
	if ret == StateFailure {
		return ret
	}

	switch {
	case tr.From == StatePlaying && tr.To == StatePaused:
		if clk := el.Clock(); clk != nil {
			p.mu.Lock()
			if !p.streamTimeDisabled {
				p.streamTime = clk.Now() - el.BaseTime()
			}
			p.mu.Unlock()
		}
	case tr.From == StateReady && tr.To == StateNull:
		p.mu.Lock()
		flush := p.autoFlushBus
		p.mu.Unlock()
		if flush {
			p.bus.SetFlushing(true)
		}
	}
	return ret
}

// sendEvent forwards through the bin and, on a successful flushing
// seek, resets the pipeline stream time to zero.
func (p *Pipeline) sendEvent(el *Element, ev *event.Event) bool {
	flushingSeek := false
	if ev.Type() == event.Seek {
		if d, err := ev.ParseSeek(); err == nil && d.Flags&event.SeekFlagFlush != 0 {
			flushingSeek = true
		}
	}
	res := p.Bin.sendEvent(el, ev)
	if res && flushingSeek {
		p.mu.Lock()
		if !p.streamTimeDisabled {
			p.streamTime = 0
		}
		p.mu.Unlock()
	}
	return res
}

// Iterate advances the pipeline's scheduler one unit of work.
func (p *Pipeline) Iterate() SchedState { return p.sched.Iterate() }

// Run loops scheduler iterations until the graph stops, errors, or the
// pipeline leaves the Playing state.
func (p *Pipeline) Run() SchedState {
	for {
		st := p.sched.Iterate()
		if st != SchedRunning {
			return st
		}
		if p.State() != StatePlaying {
			return SchedStopped
		}
	}
}
