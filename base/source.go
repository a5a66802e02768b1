// Package base provides the reusable source template concrete source
// elements build on: push/pull activation, the streaming loop, segment
// tracking and clipping, seek handling, live-source gating, clock
// synchronization of outgoing buffers and end-of-stream accounting.
package base

import (
	"fmt"
	"sync"

	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/caps"
	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/format"
	"github.com/avfoundry/go-streamline/internal/errors"
	"github.com/avfoundry/go-streamline/segment"
)

// DefaultBlocksize is the byte size requested per loop iteration when
// the application configured none.
const DefaultBlocksize = 4096

// Hooks are the subclass overrides. Every field is optional; nil fields
// fall back to the defaults described on each. The receiver passed to
// each hook is the owning Source.
type Hooks struct {
	// Start opens the resource. Default: succeed.
	Start func(s *Source) bool
	// Stop closes the resource. Default: succeed.
	Stop func(s *Source) bool
	// Create produces the buffer at offset (-1 = current position).
	// Required for a functional source.
	Create func(s *Source, offset int64, length int) (*buffer.Buffer, core.FlowReturn)
	// GetSize reports the total size in the segment format.
	// Default: unknown.
	GetSize func(s *Source) (int64, bool)
	// IsSeekable reports random repositioning support. Default: false.
	IsSeekable func(s *Source) bool
	// DoSeek applies a seek to the prepared segment. Default: bytes
	// sources reposition to segment start; any format accepts a seek to
	// the origin; everything else fails.
	DoSeek func(s *Source, seg *segment.Segment) bool
	// CheckGetRange gates pull activation. Default: seekable and bytes.
	CheckGetRange func(s *Source) bool
	// GetTimes returns the sync window of a buffer in segment time;
	// clock.None disables syncing. Default: no sync.
	GetTimes func(s *Source, b *buffer.Buffer) (clock.Time, clock.Time)
	// Event observes events before default handling; returning true
	// consumes the event.
	Event func(s *Source, ev *event.Event) bool
	// Query extends default query handling.
	Query func(s *Source, q *core.Query) bool
	// Unlock cancels a blocking Create. Default: nothing.
	Unlock func(s *Source)
	// GetCaps reports producible caps. Default: pad template caps.
	GetCaps func(s *Source) *caps.Caps
	// SetCaps accepts negotiated caps. Default: succeed.
	SetCaps func(s *Source, c *caps.Caps) bool
	// Negotiate fixes caps with the peer. Default: intersect, fixate,
	// set.
	Negotiate func(s *Source) bool
	// TypeFind sniffs caps from the first buffer when none are
	// negotiated yet. Default: none.
	TypeFind func(s *Source, b *buffer.Buffer) *caps.Caps
}

// Source is the reusable base for source elements. It owns one always
// source pad named "src" and a loop task pushing produced buffers
// downstream.
//
// Locking: the pad stream-lock serializes the loop body with seeks; the
// object mutex guards configuration, live gating and pending-event
// state. The segment is mutated only under the stream lock or while the
// loop task is known paused.
type Source struct {
	el  *core.Element
	pad *core.Pad

	hooks Hooks

	mu       sync.Mutex
	liveCond *sync.Cond

	blocksize      int
	numBuffers     int
	numBuffersLeft int
	isLive         bool

	started     bool
	liveRunning bool

	seg *segment.Segment

	task    *core.Task
	clockID clock.ID

	discontPending  bool
	lastSentEOS     bool
	pendingSeek     *event.Event
	closeSegPending *event.Event
	startSegPending *event.Event
	randomAccess    bool
}

// New creates a base source with the given element name and subclass
// hooks. tmpl may be nil for an ANY-caps source pad.
func New(name string, tmpl *core.PadTemplate, hooks Hooks) *Source {
	s := &Source{
		hooks:      hooks,
		blocksize:  DefaultBlocksize,
		numBuffers: -1,
		seg:        segment.New(format.Bytes),
	}
	s.liveCond = sync.NewCond(&s.mu)

	s.el = core.NewElement(name)
	s.el.SetOwner(s)
	s.el.ChangeState = s.changeState
	s.el.SendEventHook = s.elementSendEvent
	s.el.QueryHook = func(_ *core.Element, q *core.Query) bool { return s.handleQuery(q) }

	if tmpl == nil {
		tmpl = core.MustPadTemplate("src", core.DirSource, core.PresenceAlways, caps.NewAny())
	}
	pad, err := core.NewPadFromTemplate(tmpl, "src")
	if err != nil {
		panic(err)
	}
	s.pad = pad
	s.pad.Event = func(_ *core.Pad, ev *event.Event) bool { return s.handlePadEvent(ev) }
	s.pad.Query = func(_ *core.Pad, q *core.Query) bool { return s.handleQuery(q) }
	s.pad.GetRange = func(_ *core.Pad, offset int64, length int) (core.Data, core.FlowReturn) {
		b, ret := s.getRange(offset, length)
		if ret != core.FlowOK {
			return core.Data{}, ret
		}
		return core.FromBuffer(b), core.FlowOK
	}
	s.pad.Activate = s.padActivate
	s.pad.GetCapsHook = func(p *core.Pad) *caps.Caps {
		if s.hooks.GetCaps != nil {
			return s.hooks.GetCaps(s)
		}
		return p.Template().Caps
	}
	if err := s.el.AddPad(s.pad); err != nil {
		panic(err)
	}
	return s
}

// Element returns the underlying element.
func (s *Source) Element() *core.Element { return s.el }

// Pad returns the source pad.
func (s *Source) Pad() *core.Pad { return s.pad }

// --- Configuration ---

// SetBlocksize sets the bytes requested per produced buffer.
func (s *Source) SetBlocksize(n int) {
	s.mu.Lock()
	if n > 0 {
		s.blocksize = n
	}
	s.mu.Unlock()
}

// Blocksize returns the configured block size.
func (s *Source) Blocksize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocksize
}

// SetNumBuffers limits how many buffers are produced before EOS
// (negative = unlimited).
func (s *Source) SetNumBuffers(n int) {
	s.mu.Lock()
	s.numBuffers = n
	s.numBuffersLeft = n
	s.mu.Unlock()
}

// SetLive marks the source as live: no preroll, production gated on the
// Playing state.
func (s *Source) SetLive(live bool) {
	s.mu.Lock()
	s.isLive = live
	s.mu.Unlock()
}

// IsLive reports the live flag.
func (s *Source) IsLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLive
}

// SetFormat switches the segment format before activation.
func (s *Source) SetFormat(f format.Format) {
	s.pad.StreamLock()
	s.seg.Init(f)
	s.pad.StreamUnlock()
}

// RandomAccess reports whether the source was activated in pull mode.
func (s *Source) RandomAccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.randomAccess
}

// Segment returns a copy of the current segment.
func (s *Source) Segment() segment.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.seg
}

// --- Subclass default wrappers ---

func (s *Source) start() bool {
	if s.hooks.Start != nil && !s.hooks.Start(s) {
		return false
	}
	s.mu.Lock()
	s.started = true
	s.numBuffersLeft = s.numBuffers
	s.lastSentEOS = false
	s.mu.Unlock()
	s.negotiate()
	return true
}

func (s *Source) stop() bool {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	if s.hooks.Stop != nil {
		return s.hooks.Stop(s)
	}
	return true
}

func (s *Source) getSize() (int64, bool) {
	if s.hooks.GetSize != nil {
		return s.hooks.GetSize(s)
	}
	return 0, false
}

func (s *Source) isSeekable() bool {
	if s.hooks.IsSeekable != nil {
		return s.hooks.IsSeekable(s)
	}
	return false
}

func (s *Source) checkGetRange() bool {
	if s.hooks.CheckGetRange != nil {
		return s.hooks.CheckGetRange(s)
	}
	s.mu.Lock()
	f := s.seg.Format
	s.mu.Unlock()
	return s.isSeekable() && f == format.Bytes
}

func (s *Source) doSeek(seg *segment.Segment) bool {
	if s.hooks.DoSeek != nil {
		return s.hooks.DoSeek(s, seg)
	}
	switch {
	case seg.Format == format.Bytes:
		seg.Position = seg.Start
		seg.Time = seg.Start
		return true
	case seg.Start == 0:
		seg.Position = 0
		seg.Time = 0
		return true
	default:
		return false
	}
}

func (s *Source) unlock() {
	if s.hooks.Unlock != nil {
		s.hooks.Unlock(s)
	}
	s.mu.Lock()
	id := s.clockID
	s.mu.Unlock()
	if id != nil {
		id.Unschedule()
	}
	// Wake a live wait so it can re-check the flushing flag.
	s.liveCond.Broadcast()
}

// negotiate fixes caps with the peer when none are negotiated yet.
func (s *Source) negotiate() bool {
	if s.hooks.Negotiate != nil {
		return s.hooks.Negotiate(s)
	}
	if s.pad.Caps() != nil {
		return true
	}
	peer := s.pad.Peer()
	if peer == nil {
		return true
	}
	allowed := caps.Intersect(s.pad.GetCaps(), peer.GetCaps())
	if allowed.IsEmpty() {
		return false
	}
	if allowed.IsFixed() {
		return s.setCaps(allowed)
	}
	fixed := allowed.Fixate()
	if fixed == nil {
		return false
	}
	return s.setCaps(fixed)
}

func (s *Source) setCaps(c *caps.Caps) bool {
	if s.hooks.SetCaps != nil && !s.hooks.SetCaps(s, c) {
		return false
	}
	return s.pad.SetCaps(c)
}

// --- Activation ---

// padActivate is the source pad's activation hook. Push activation
// starts the resource, applies any deferred seek and spawns the loop
// task; pull activation verifies random access and spawns nothing.
func (s *Source) padActivate(p *core.Pad, mode core.PadMode, active bool) bool {
	if !active {
		return s.deactivate()
	}
	switch mode {
	case core.PadModePush:
		return s.activatePush()
	case core.PadModePull:
		return s.activatePull()
	default:
		return false
	}
}

func (s *Source) activatePush() bool {
	if !s.start() {
		return false
	}
	s.mu.Lock()
	pending := s.pendingSeek
	s.pendingSeek = nil
	s.randomAccess = false
	s.mu.Unlock()

	if pending != nil {
		s.PerformSeek(pending, false)
		pending.Unref()
	} else {
		s.queueStartSegment()
	}

	if s.task == nil {
		name := s.el.Name() + ":src"
		if sched := s.el.Scheduler(); sched != nil {
			s.task = sched.NewTask(name, s.loop)
		} else {
			s.task = core.NewTask(name, s.loop)
		}
	}
	s.task.Start()
	return true
}

func (s *Source) activatePull() bool {
	if !s.start() {
		return false
	}
	if !s.checkGetRange() {
		s.stop()
		return false
	}
	s.mu.Lock()
	s.randomAccess = true
	s.mu.Unlock()
	return true
}

func (s *Source) deactivate() bool {
	// Flushing must be visible before waking blocked producers so the
	// live wait and get-range exit instead of re-arming.
	s.pad.SetFlushing(true)
	s.unlock()
	if s.task != nil {
		s.task.Stop()
		s.task.Join()
		s.task = nil
	}
	s.mu.Lock()
	s.closeSegPending = nil
	s.startSegPending = nil
	s.discontPending = false
	s.mu.Unlock()
	return s.stop()
}

// queueStartSegment arms the automatic new-segment emission preceding
// the first buffer.
func (s *Source) queueStartSegment() {
	s.mu.Lock()
	seg := *s.seg
	s.startSegPending = event.NewNewSegment(false, seg.Rate, seg.AppliedRate, seg.Format, seg.Start, seg.Stop, seg.Time)
	s.mu.Unlock()
}

// --- Streaming loop ---

// loop is one iteration of the streaming task: emit pending segment
// events, produce at the segment position, push downstream, advance.
func (s *Source) loop() {
	s.pad.StreamLock()

	// Pending close/start segment events always precede data.
	s.mu.Lock()
	closeEv, startEv := s.closeSegPending, s.startSegPending
	s.closeSegPending, s.startSegPending = nil, nil
	blocksize := s.blocksize
	segFmt := s.seg.Format
	pos := s.seg.Position
	s.mu.Unlock()
	if closeEv != nil {
		s.pad.SendEvent(closeEv)
	}
	if startEv != nil {
		s.pad.SendEvent(startEv)
	}

	offset := int64(-1)
	if segFmt == format.Bytes {
		offset = pos
	}

	b, ret := s.getRange(offset, blocksize)
	if ret == core.FlowOK {
		size := int64(b.Size())
		ret = s.pad.Push(b)
		if ret == core.FlowOK {
			s.mu.Lock()
			if segFmt == format.Bytes {
				s.seg.Advance(size)
			} else {
				s.seg.Advance(1)
			}
			done := s.seg.Done()
			s.mu.Unlock()
			if done {
				ret = core.FlowUnexpected
			}
		}
	}
	s.pad.StreamUnlock()

	switch ret {
	case core.FlowOK:
	case core.FlowUnexpected:
		// End of stream or buffer budget: segment seeks get a
		// segment-done message, everything else EOS exactly once.
		s.mu.Lock()
		segFlag := s.seg.Flags&event.SeekFlagSegment != 0
		f, pos := s.seg.Format, s.seg.Position
		s.mu.Unlock()
		if segFlag {
			s.el.PostMessage(core.NewSegmentDoneMessage(s.el, f, pos))
		} else {
			s.sendEOSOnce()
		}
		s.task.Pause()
	case core.FlowWrongState, core.FlowNotLinked:
		// Cancelled or unlinked during a state change: pause silently.
		s.task.Pause()
	default:
		s.el.ErrorMessage(errors.NewStreamError("source.loop", fmt.Errorf("streaming stopped: %s", ret)), "")
		s.sendEOSOnce()
		s.task.Pause()
	}
}

// sendEOSOnce pushes EOS downstream, latched per running segment.
func (s *Source) sendEOSOnce() {
	s.mu.Lock()
	if s.lastSentEOS {
		s.mu.Unlock()
		return
	}
	s.lastSentEOS = true
	s.mu.Unlock()
	s.pad.SendEvent(event.NewEOS())
}

// getRange produces one buffer: live gating, buffer budget, clipping
// against size and segment stop, subclass create, timestamp defaulting,
// clock sync and discont marking.
func (s *Source) getRange(offset int64, length int) (*buffer.Buffer, core.FlowReturn) {
	// 1. Live sources block until running (Playing) or flushing.
	s.mu.Lock()
	for s.isLive && !s.liveRunning {
		if s.pad.Flushing() {
			s.mu.Unlock()
			return nil, core.FlowWrongState
		}
		s.liveCond.Wait()
	}
	if s.pad.Flushing() {
		s.mu.Unlock()
		return nil, core.FlowWrongState
	}

	// 2. Finite buffer budget.
	if s.numBuffers >= 0 {
		if s.numBuffersLeft == 0 {
			s.mu.Unlock()
			return nil, core.FlowUnexpected
		}
		s.numBuffersLeft--
	}
	segStop := s.seg.Stop
	segTime := s.seg.Time
	s.mu.Unlock()

	// 3. Clip length against the total size and the segment stop.
	end := int64(format.None)
	if size, ok := s.getSize(); ok {
		end = size
	}
	if format.Valid(segStop) && (!format.Valid(end) || segStop < end) {
		end = segStop
	}
	if offset >= 0 && format.Valid(end) {
		if offset >= end {
			return nil, core.FlowUnexpected
		}
		if remain := end - offset; int64(length) > remain {
			length = int(remain)
		}
	}

	// 4. Subclass create.
	b, ret := s.create(offset, length)
	if ret != core.FlowOK {
		return nil, ret
	}
	if b == nil {
		return nil, core.FlowError
	}
	if b.Timestamp == clock.None {
		if s.IsLive() {
			// Live buffers are stamped with capture time.
			if c := s.el.Clock(); c != nil {
				b.Timestamp = c.Now()
			}
		} else if offset == 0 && segTime == 0 {
			b.Timestamp = 0
		}
	}

	// Late caps: sniff the first buffer when nothing was negotiated.
	if s.pad.Caps() == nil && s.hooks.TypeFind != nil {
		if c := s.hooks.TypeFind(s, b); c != nil && s.setCaps(c) {
			b.Caps = c
		}
	}

	// 5. Synchronize against the clock; cancellable via unlock.
	if res := s.doSync(b); res == clock.WaitUnscheduled {
		b.Unref()
		return nil, core.FlowWrongState
	}

	// 6. First buffer after a flushing seek carries a discont.
	s.mu.Lock()
	discont := s.discontPending
	s.discontPending = false
	s.mu.Unlock()
	if discont {
		b = b.MakeWritable()
		b.Flags |= buffer.FlagDiscont
	}
	return b, core.FlowOK
}

func (s *Source) create(offset int64, length int) (*buffer.Buffer, core.FlowReturn) {
	if s.hooks.Create == nil {
		return nil, core.FlowError
	}
	return s.hooks.Create(s, offset, length)
}

// doSync waits until the clock reaches base time plus the buffer's sync
// point as reported by the get-times hook.
func (s *Source) doSync(b *buffer.Buffer) clock.WaitResult {
	if s.hooks.GetTimes == nil {
		return clock.WaitOK
	}
	start, _ := s.hooks.GetTimes(s, b)
	if start == clock.None {
		return clock.WaitOK
	}
	c := s.el.Clock()
	if c == nil {
		return clock.WaitOK
	}
	id := c.NewSingleShot(s.el.BaseTime() + start)
	s.mu.Lock()
	s.clockID = id
	s.mu.Unlock()
	res := id.Wait()
	s.mu.Lock()
	s.clockID = nil
	s.mu.Unlock()
	return res
}

// --- Seeking ---

// handlePadEvent processes events sent on the source pad: upstream events
// from downstream elements or the application are handled here, and
// downstream events the source emits itself are forwarded to the peer.
func (s *Source) handlePadEvent(ev *event.Event) bool {
	if s.hooks.Event != nil && s.hooks.Event(s, ev) {
		ev.Unref()
		return true
	}
	switch ev.Type() {
	case event.Seek:
		res := s.handleSeek(ev)
		ev.Unref()
		return res
	case event.QOS, event.Navigation, event.BufferSize:
		ev.Unref()
		return false
	default:
		// Flush, segment and EOS events leave through the peer; the pad
		// has already applied the flush flags to itself.
		if peer := s.pad.Peer(); peer != nil {
			return peer.SendEvent(ev)
		}
		ev.Unref()
		return false
	}
}

// elementSendEvent routes element-level events: seeks go through the
// seek machinery, downstream events leave through the source pad.
func (s *Source) elementSendEvent(_ *core.Element, ev *event.Event) bool {
	if ev.Type() == event.Seek {
		res := s.handleSeek(ev)
		ev.Unref()
		return res
	}
	return s.pad.SendEvent(ev)
}

// handleSeek defers seeks on a stopped source and executes them
// immediately otherwise.
func (s *Source) handleSeek(ev *event.Event) bool {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		if !s.isSeekable() {
			return false
		}
		s.mu.Lock()
		if s.pendingSeek != nil {
			s.pendingSeek.Unref()
		}
		s.pendingSeek = ev.Ref()
		s.mu.Unlock()
		return true
	}
	streaming := s.task != nil && s.task.Alive()
	return s.PerformSeek(ev, streaming)
}

// PerformSeek executes a seek event against the running source:
//
//  1. parse, converting the format if needed (identity conversion only);
//  2. flushing seeks push flush-start downstream and unlock the running
//     get-range, non-flushing seeks pause the loop task;
//  3. take the pad stream-lock, now serialized with the worker;
//  4. prepare the new segment from a copy;
//  5. run the subclass do-seek, committing only on success;
//  6. push flush-stop (flushing) or queue a close-segment event for the
//     consumed range (non-flushing, previously running);
//  7. queue the start-segment event;
//  8. mark discont, re-arm EOS, restart the loop;
//  9. release the stream-lock.
func (s *Source) PerformSeek(ev *event.Event, unlockStreaming bool) bool {
	d, err := ev.ParseSeek()
	if err != nil {
		return false
	}

	s.mu.Lock()
	segFormat := s.seg.Format
	s.mu.Unlock()

	seek := *d
	if d.Format != segFormat {
		// Convert boundaries through the query path; identity only by
		// default, so mismatched formats abort the seek.
		q := core.NewConvertQuery(d.Format, d.Start, segFormat)
		if !s.handleQuery(q) {
			return false
		}
		seek.Start = q.Value
		if d.StopType != event.SeekTypeNone {
			q = core.NewConvertQuery(d.Format, d.Stop, segFormat)
			if !s.handleQuery(q) {
				return false
			}
			seek.Stop = q.Value
		}
		seek.Format = segFormat
	}

	flush := seek.Flags&event.SeekFlagFlush != 0
	wasRunning := s.task != nil && s.task.Running()

	if flush {
		s.pad.SetFlushing(true)
		s.pad.SendEvent(event.NewFlushStart())
		if unlockStreaming {
			s.unlock()
		}
	} else if s.task != nil {
		s.task.Pause()
	}

	// Serialized with the (paused or cancelled) worker from here.
	s.pad.StreamLock()

	s.mu.Lock()
	oldSeg := *s.seg
	seekSeg := s.seg.Copy()
	s.mu.Unlock()

	seekSeg.ApplySeek(&seek)

	if s.doSeek(seekSeg) {
		s.mu.Lock()
		s.seg = seekSeg
		s.mu.Unlock()
	}
	// A failed do-seek leaves the segment unchanged but the seek still
	// completes best-effort.

	if flush {
		s.pad.SetFlushing(false)
		s.pad.SendEvent(event.NewFlushStop())
	} else if wasRunning {
		s.mu.Lock()
		s.closeSegPending = event.NewNewSegment(true, oldSeg.Rate, oldSeg.AppliedRate, oldSeg.Format,
			oldSeg.Start, oldSeg.Position, oldSeg.Time)
		s.mu.Unlock()
	}

	s.queueStartSegment()

	s.mu.Lock()
	s.discontPending = true
	s.lastSentEOS = false
	s.mu.Unlock()
	if s.task != nil {
		s.task.Start()
	}

	s.pad.StreamUnlock()
	return true
}

// --- Queries ---

// handleQuery implements the default source queries: position,
// duration, seeking, segment, formats and identity conversion.
func (s *Source) handleQuery(q *core.Query) bool {
	if s.hooks.Query != nil && s.hooks.Query(s, q) {
		return true
	}
	s.mu.Lock()
	seg := *s.seg
	s.mu.Unlock()

	switch q.Type {
	case core.QueryPosition:
		if q.Format != seg.Format {
			return false
		}
		q.Value = seg.Position
		return true
	case core.QueryDuration:
		size, ok := s.getSize()
		if !ok || q.Format != seg.Format {
			return false
		}
		q.Value = size
		return true
	case core.QuerySeeking:
		q.Seekable = s.isSeekable()
		return true
	case core.QuerySegment:
		q.Format = seg.Format
		q.SegStart = seg.Time
		if format.Valid(seg.Stop) {
			q.SegStop = seg.Stop - seg.Start + seg.Time
		} else {
			q.SegStop = format.None
		}
		return true
	case core.QueryFormats:
		q.Formats = []format.Format{format.Default, format.Bytes, format.Time}
		return true
	case core.QueryConvert:
		if q.SrcFormat != q.Format {
			return false
		}
		q.Value = q.SrcValue
		return true
	default:
		return false
	}
}

// --- State handling ---

// changeState wires the source lifecycle into the element state
// machine: activation on Ready→Paused, live gating around Playing,
// flush and shutdown on the way down.
func (s *Source) changeState(el *core.Element, tr core.Transition) core.StateReturn {
	switch {
	case tr.From == core.StateReady && tr.To == core.StatePaused:
		s.mu.Lock()
		live := s.isLive
		s.liveRunning = false
		s.mu.Unlock()
		if !s.pad.ActivateMode(core.PadModePush, true) {
			return core.StateFailure
		}
		if live {
			return core.StateNoPreroll
		}
		return core.StateSuccess

	case tr.From == core.StatePaused && tr.To == core.StatePlaying:
		s.mu.Lock()
		s.liveRunning = true
		s.mu.Unlock()
		s.liveCond.Broadcast()
		return core.StateSuccess

	case tr.From == core.StatePlaying && tr.To == core.StatePaused:
		s.mu.Lock()
		live := s.isLive
		s.liveRunning = false
		s.mu.Unlock()
		if live {
			s.unlock()
			return core.StateNoPreroll
		}
		return core.StateSuccess

	case tr.From == core.StatePaused && tr.To == core.StateReady:
		// Flush pending data and cancel clock waits.
		if !s.pad.ActivateMode(core.PadModePush, false) {
			return core.StateFailure
		}
		s.mu.Lock()
		s.lastSentEOS = false
		s.mu.Unlock()
		return core.StateSuccess

	default:
		return core.StateSuccess
	}
}
