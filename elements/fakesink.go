package elements

import (
	"sync"
	"time"

	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/event"
)

// RecvBuffer is the recorded metadata of one buffer a FakeSink
// consumed.
type RecvBuffer struct {
	Size      int
	Offset    uint64
	Timestamp clock.Time
	Discont   bool
}

// FakeSink consumes and records everything arriving on its sink pad.
// On EOS it posts the end-of-stream message on the pipeline bus.
type FakeSink struct {
	el  *core.Element
	pad *core.Pad

	mu       sync.Mutex
	cond     *sync.Cond
	buffers  []RecvBuffer
	events   []event.Type
	segments []event.SegmentDetails
	eos      bool
}

// NewFakeSink creates a fake sink.
func NewFakeSink(name string) *FakeSink {
	f := &FakeSink{}
	f.cond = sync.NewCond(&f.mu)
	f.el = core.NewElement(name)
	f.el.SetOwner(f)
	f.el.ChangeState = f.changeState

	f.pad = core.NewPad("sink", core.DirSink)
	f.pad.Chain = f.chain
	f.pad.Event = f.handleEvent
	if err := f.el.AddPad(f.pad); err != nil {
		panic(err)
	}
	return f
}

// Element returns the underlying element.
func (f *FakeSink) Element() *core.Element { return f.el }

// Pad returns the sink pad.
func (f *FakeSink) Pad() *core.Pad { return f.pad }

func (f *FakeSink) chain(_ *core.Pad, b *buffer.Buffer) core.FlowReturn {
	f.mu.Lock()
	f.buffers = append(f.buffers, RecvBuffer{
		Size:      b.Size(),
		Offset:    b.Offset,
		Timestamp: b.Timestamp,
		Discont:   b.Flags&buffer.FlagDiscont != 0,
	})
	f.mu.Unlock()
	f.cond.Broadcast()
	b.Unref()
	return core.FlowOK
}

func (f *FakeSink) handleEvent(p *core.Pad, ev *event.Event) bool {
	switch ev.Type() {
	case event.Seek, event.QOS, event.Navigation, event.BufferSize:
		// Upstream events pass through to the peer untouched.
		peer := p.Peer()
		if peer == nil {
			ev.Unref()
			return false
		}
		return peer.SendEvent(ev)
	}
	f.mu.Lock()
	f.events = append(f.events, ev.Type())
	if ev.Type() == event.EOS {
		f.eos = true
	}
	if d, err := ev.ParseNewSegment(); err == nil {
		f.segments = append(f.segments, *d)
	}
	f.mu.Unlock()
	f.cond.Broadcast()
	if ev.Type() == event.EOS {
		f.el.PostMessage(core.NewEOSMessage(f.el))
	}
	ev.Unref()
	return true
}

func (f *FakeSink) changeState(el *core.Element, tr core.Transition) core.StateReturn {
	switch {
	case tr.From == core.StateReady && tr.To == core.StatePaused:
		if !f.pad.SetActive(true) {
			return core.StateFailure
		}
	case tr.From == core.StatePaused && tr.To == core.StateReady:
		if !f.pad.SetActive(false) {
			return core.StateFailure
		}
	}
	return core.StateSuccess
}

// BufferCount returns how many buffers arrived so far.
func (f *FakeSink) BufferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buffers)
}

// Buffers returns a snapshot of the recorded buffer metadata.
func (f *FakeSink) Buffers() []RecvBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecvBuffer, len(f.buffers))
	copy(out, f.buffers)
	return out
}

// Events returns a snapshot of the received event types in order.
func (f *FakeSink) Events() []event.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.Type, len(f.events))
	copy(out, f.events)
	return out
}

// Segments returns the recorded new-segment payloads in order.
func (f *FakeSink) Segments() []event.SegmentDetails {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.SegmentDetails, len(f.segments))
	copy(out, f.segments)
	return out
}

// CountEvents returns how many events of the given type arrived.
func (f *FakeSink) CountEvents(t event.Type) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == t {
			n++
		}
	}
	return n
}

// GotEOS reports whether EOS arrived.
func (f *FakeSink) GotEOS() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eos
}

// WaitBuffers blocks until at least n buffers arrived or the timeout
// elapsed.
func (f *FakeSink) WaitBuffers(n int, timeout time.Duration) bool {
	return f.waitCond(func() bool { return len(f.buffers) >= n }, timeout)
}

// WaitEOS blocks until EOS arrived or the timeout elapsed.
func (f *FakeSink) WaitEOS(timeout time.Duration) bool {
	return f.waitCond(func() bool { return f.eos }, timeout)
}

func (f *FakeSink) waitCond(pred func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	stop := make(chan struct{})
	go func() {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			f.cond.Broadcast()
		case <-stop:
		}
	}()
	defer close(stop)

	f.mu.Lock()
	defer f.mu.Unlock()
	for !pred() {
		if !time.Now().Before(deadline) {
			return false
		}
		f.cond.Wait()
	}
	return true
}
