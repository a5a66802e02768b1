package core

import (
	"fmt"
	"sync"

	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/caps"
	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/format"
	"github.com/avfoundry/go-streamline/internal/errors"
	"github.com/avfoundry/go-streamline/internal/logger"
	"github.com/avfoundry/go-streamline/internal/metrics"
)

// Direction of a pad: where data leaves or enters an element.
type Direction int

const (
	DirUnknown Direction = iota
	// DirSource pads emit data out of their element.
	DirSource
	// DirSink pads accept data into their element.
	DirSink
)

func (d Direction) String() string {
	switch d {
	case DirSource:
		return "source"
	case DirSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirSource:
		return DirSink
	case DirSink:
		return DirSource
	default:
		return DirUnknown
	}
}

// PadMode is the data movement scheme a pad was activated in.
type PadMode int

const (
	PadModeInactive PadMode = iota
	// PadModePush means upstream drives data into the chain function.
	PadModePush
	// PadModePull means downstream drives data out of the get function.
	PadModePull
)

func (m PadMode) String() string {
	switch m {
	case PadModePush:
		return "push"
	case PadModePull:
		return "pull"
	default:
		return "inactive"
	}
}

// CapsReturn is the result of a caps negotiation attempt.
type CapsReturn int

const (
	// CapsRefused means the caps were rejected.
	CapsRefused CapsReturn = iota
	// CapsDelayed means the caps were not fixed yet; negotiation is
	// deferred.
	CapsDelayed
	// CapsOK means the caps were accepted and recorded.
	CapsOK
	// CapsDone means a recursive negotiation already completed the work.
	CapsDone
)

func (r CapsReturn) String() string {
	switch r {
	case CapsRefused:
		return "refused"
	case CapsDelayed:
		return "delayed"
	case CapsOK:
		return "ok"
	case CapsDone:
		return "done"
	default:
		return "unknown"
	}
}

// Succeeded reports whether negotiation accepted the caps.
func (r CapsReturn) Succeeded() bool { return r == CapsOK || r == CapsDone }

// Callback types carried by a pad. All default to core behavior when nil.
type (
	// ChainFunc accepts one buffer on a sink pad.
	ChainFunc func(p *Pad, b *buffer.Buffer) FlowReturn
	// GetRangeFunc produces data from a source pad. offset < 0 means
	// "current position"; length 0 means the element's default.
	GetRangeFunc func(p *Pad, offset int64, length int) (Data, FlowReturn)
	// EventFunc handles an event arriving on the pad.
	EventFunc func(p *Pad, ev *event.Event) bool
	// QueryFunc answers a query on the pad.
	QueryFunc func(p *Pad, q *Query) bool
	// LinkNotifyFunc validates caps offered to the pad during link or
	// set-caps negotiation.
	LinkNotifyFunc func(p *Pad, c *caps.Caps) CapsReturn
	// GetCapsFunc reports the pad's current possible caps.
	GetCapsFunc func(p *Pad) *caps.Caps
	// ConvertFunc converts a value between formats on this pad.
	ConvertFunc func(p *Pad, from format.Format, value int64, to format.Format) (int64, bool)
	// InternalLinksFunc lists the element-internal pads this pad can
	// forward to.
	InternalLinksFunc func(p *Pad) []*Pad
	// FormatsFunc lists the formats the pad supports.
	FormatsFunc func(p *Pad) []format.Format
	// QueryTypesFunc lists the query types the pad answers.
	QueryTypesFunc func(p *Pad) []QueryType
	// EventMasksFunc lists the event types the pad handles.
	EventMasksFunc func(p *Pad) []event.Type
	// ActivateFunc switches the pad into or out of a scheduling mode.
	ActivateFunc func(p *Pad, mode PadMode, active bool) bool
	// BufferAllocFunc allocates an output buffer for the pad.
	BufferAllocFunc func(p *Pad, size int) *buffer.Buffer
	// Probe inspects an item on the data path; returning false vetoes
	// (drops) the item.
	Probe func(p *Pad, d Data) bool
)

// Pad is a directional endpoint on an element, optionally linked to
// exactly one peer pad of the opposite direction.
//
// Concurrency model: identity fields are immutable after AddPad. The
// object mutex guards peer/caps/filter/mode/flags/probes. The stream
// mutex serializes the data path per pad: a sink pad's chain calls, and a
// source pad's loop iterations, run under it. Flush-start deliberately
// bypasses the stream mutex so it can overtake in-flight data.
type Pad struct {
	name   string
	dir    Direction
	parent *Element
	tmpl   *PadTemplate

	mu       sync.Mutex
	peer     *Pad
	caps     *caps.Caps
	filter   *caps.Caps
	mode     PadMode
	active   bool
	flushing bool
	probes   map[int]Probe
	probeSeq int
	// selectMark is set when data arrives, consumed by Scheduler.PadSelect.
	selectMark bool

	streamMu sync.Mutex

	// Per-pad behavior hooks.
	Chain         ChainFunc
	GetRange      GetRangeFunc
	Event         EventFunc
	Query         QueryFunc
	LinkNotify    LinkNotifyFunc
	GetCapsHook   GetCapsFunc
	Convert       ConvertFunc
	InternalLinks InternalLinksFunc
	Formats       FormatsFunc
	QueryTypes    QueryTypesFunc
	EventMasks    EventMasksFunc
	Activate      ActivateFunc
	BufferAlloc   BufferAllocFunc
}

// NewPad creates an unparented pad.
func NewPad(name string, dir Direction) *Pad {
	return &Pad{name: name, dir: dir, probes: make(map[int]Probe)}
}

// NewPadFromTemplate instantiates a pad from a template, using the
// template name itself when name is empty (always/sometimes templates).
func NewPadFromTemplate(tmpl *PadTemplate, name string) (*Pad, error) {
	if name == "" {
		name = tmpl.NameTemplate
	}
	return tmpl.Instantiate(name)
}

// Name returns the pad name (unique within its element).
func (p *Pad) Name() string { return p.name }

// Direction returns the pad direction.
func (p *Pad) Direction() Direction { return p.dir }

// Parent returns the owning element, or nil for a floating pad.
func (p *Pad) Parent() *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parent
}

// Template returns the pad template the pad was created from (may be nil).
func (p *Pad) Template() *PadTemplate { return p.tmpl }

// Peer returns the linked peer pad or nil.
func (p *Pad) Peer() *Pad {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer
}

// IsLinked reports whether the pad has a peer.
func (p *Pad) IsLinked() bool { return p.Peer() != nil }

// Caps returns the negotiated caps (nil until negotiation fixed them).
func (p *Pad) Caps() *caps.Caps {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caps
}

// Filter returns the filter caps recorded for a deferred negotiation.
func (p *Pad) Filter() *caps.Caps {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// Mode returns the activation mode.
func (p *Pad) Mode() PadMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// IsActive reports whether the pad was activated.
func (p *Pad) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Flushing reports whether the pad is discarding data.
func (p *Pad) Flushing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushing
}

// SetFlushing marks/unmarks the pad as flushing. Exposed for elements
// that manage flushing outside of flush events (deactivation).
func (p *Pad) SetFlushing(f bool) {
	p.mu.Lock()
	p.flushing = f
	p.mu.Unlock()
}

// StreamLock locks the pad's stream mutex, serializing with the data
// path. Callers must pair with StreamUnlock.
func (p *Pad) StreamLock() { p.streamMu.Lock() }

// StreamUnlock releases the stream mutex.
func (p *Pad) StreamUnlock() { p.streamMu.Unlock() }

// AddProbe registers a data-path probe and returns its removal id.
func (p *Pad) AddProbe(fn Probe) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probeSeq++
	id := p.probeSeq
	p.probes[id] = fn
	return id
}

// RemoveProbe unregisters a probe by id.
func (p *Pad) RemoveProbe(id int) {
	p.mu.Lock()
	delete(p.probes, id)
	p.mu.Unlock()
}

// runProbes returns false when any probe vetoed the item.
func (p *Pad) runProbes(d Data) bool {
	p.mu.Lock()
	if len(p.probes) == 0 {
		p.mu.Unlock()
		return true
	}
	snapshot := make([]Probe, 0, len(p.probes))
	for _, fn := range p.probes {
		snapshot = append(snapshot, fn)
	}
	p.mu.Unlock()
	for _, fn := range snapshot {
		if !fn(p, d) {
			return false
		}
	}
	return true
}

// qualifiedName returns "element:pad" for logs.
func (p *Pad) qualifiedName() string {
	if parent := p.Parent(); parent != nil {
		return parent.Name() + ":" + p.name
	}
	return p.name
}

// --- Caps handling ---

// GetCaps returns the pad's possible caps: the negotiated caps when
// fixed, else the getcaps hook, else the template caps, else ANY.
func (p *Pad) GetCaps() *caps.Caps {
	p.mu.Lock()
	c := p.caps
	hook := p.GetCapsHook
	tmpl := p.tmpl
	p.mu.Unlock()
	if c != nil {
		return c
	}
	if hook != nil {
		return hook(p)
	}
	if tmpl != nil {
		return tmpl.Caps
	}
	return caps.NewAny()
}

// linkNotify runs the pad's link-notify hook (accepting by default).
func (p *Pad) linkNotify(c *caps.Caps) CapsReturn {
	if p.LinkNotify != nil {
		return p.LinkNotify(p, c)
	}
	return CapsOK
}

// TrySetCaps negotiates fixed caps onto the pad and, when linked, onto
// its peer. Returns exactly one of Refused, Delayed, OK or Done.
func (p *Pad) TrySetCaps(c *caps.Caps) CapsReturn {
	if !c.IsFixed() {
		return CapsDelayed
	}
	if f := p.Filter(); f != nil && caps.Intersect(c, f).IsEmpty() {
		return CapsRefused
	}
	if peer := p.Peer(); peer != nil {
		switch ret := peer.linkNotify(c); ret {
		case CapsRefused:
			return CapsRefused
		case CapsDone:
			// Peer recursed and completed the negotiation for both ends.
			return CapsDone
		default:
			peer.storeCaps(c)
		}
	}
	// Own link-notify validates without re-notifying the peer.
	if p.LinkNotify != nil {
		if ret := p.LinkNotify(p, c); ret == CapsRefused {
			return CapsRefused
		}
	}
	p.storeCaps(c)
	logger.Debug("caps set", "pad", p.qualifiedName(), "caps", c.String())
	if parent := p.Parent(); parent != nil {
		parent.PostMessage(NewCapsChangedMessage(parent, p.name, c))
	}
	return CapsOK
}

// SetCaps is TrySetCaps reduced to a boolean.
func (p *Pad) SetCaps(c *caps.Caps) bool { return p.TrySetCaps(c).Succeeded() }

func (p *Pad) storeCaps(c *caps.Caps) {
	p.mu.Lock()
	p.caps = c
	p.mu.Unlock()
}

// --- Linking ---

// schedulersCompatible requires equal schedulers or exactly one
// decoupled endpoint.
func schedulersCompatible(a, b *Element) bool {
	if a.Scheduler() == b.Scheduler() {
		return true
	}
	return a.Decoupled() != b.Decoupled()
}

// CanLink reports whether src (this pad) can link to sink: both
// unlinked, opposite directions, both parented, compatible schedulers.
func (p *Pad) CanLink(sink *Pad) error {
	if p.dir != DirSource || sink.dir != DirSink {
		return errors.NewCoreError("pad.link", fmt.Errorf("%s -> %s: need source -> sink", p.dir, sink.dir))
	}
	if p.IsLinked() || sink.IsLinked() {
		return errors.NewCoreError("pad.link", fmt.Errorf("%s or %s already linked", p.qualifiedName(), sink.qualifiedName()))
	}
	srcParent, sinkParent := p.Parent(), sink.Parent()
	if srcParent == nil || sinkParent == nil {
		return errors.NewCoreError("pad.link", fmt.Errorf("unparented pad"))
	}
	if !schedulersCompatible(srcParent, sinkParent) {
		return errors.NewCoreError("pad.link", fmt.Errorf("link %s -> %s crosses schedulers and requires a decoupled element", p.qualifiedName(), sink.qualifiedName()))
	}
	return nil
}

// Link links a source pad to a sink pad.
func (p *Pad) Link(sink *Pad) error { return p.LinkFiltered(sink, nil) }

// LinkFiltered links with an optional filter restricting the allowed
// caps. Linking is three-phased: record peers, compute the filtered
// intersection, then negotiate (fix caps now or defer with the filter
// recorded on both sides).
func (p *Pad) LinkFiltered(sink *Pad, filter *caps.Caps) error {
	if err := p.CanLink(sink); err != nil {
		return err
	}

	// Phase 1: record peers symmetrically.
	p.mu.Lock()
	p.peer = sink
	p.mu.Unlock()
	sink.mu.Lock()
	sink.peer = p
	sink.mu.Unlock()

	undo := func() {
		p.mu.Lock()
		p.peer = nil
		p.mu.Unlock()
		sink.mu.Lock()
		sink.peer = nil
		sink.mu.Unlock()
	}

	// Phase 2: the link's allowed caps.
	allowed := caps.Intersect(p.GetCaps(), sink.GetCaps())
	filtered := allowed
	if filter != nil {
		filtered = caps.Intersect(allowed, filter)
	}
	if filtered.IsEmpty() {
		undo()
		return errors.NewNegotiationError("pad.link", fmt.Errorf("empty caps intersection for %s -> %s", p.qualifiedName(), sink.qualifiedName()))
	}

	// Phase 3: negotiate now or defer.
	if filtered.IsFixed() {
		if p.linkNotify(filtered) == CapsRefused || sink.linkNotify(filtered) == CapsRefused {
			undo()
			return errors.NewNegotiationError("pad.link", fmt.Errorf("caps %s refused on %s -> %s", filtered, p.qualifiedName(), sink.qualifiedName()))
		}
		p.storeCaps(filtered)
		sink.storeCaps(filtered)
	} else {
		p.mu.Lock()
		p.filter = filtered
		p.mu.Unlock()
		sink.mu.Lock()
		sink.filter = filtered
		sink.mu.Unlock()
	}

	// Same-scheduler links are reported directly; cross-scheduler links
	// rely on the decoupled element as the enqueue boundary.
	srcParent, sinkParent := p.Parent(), sink.Parent()
	if s := srcParent.Scheduler(); s != nil && s == sinkParent.Scheduler() {
		s.PadLink(p, sink)
	}
	logger.Debug("pads linked", "src", p.qualifiedName(), "sink", sink.qualifiedName(), "caps", filtered.String())
	return nil
}

// Unlink breaks the link, clearing peers, caps and the shared filter on
// both sides and notifying the scheduler.
func (p *Pad) Unlink() {
	peer := p.Peer()
	if peer == nil {
		return
	}
	var src, sink *Pad
	if p.dir == DirSource {
		src, sink = p, peer
	} else {
		src, sink = peer, p
	}

	srcParent, sinkParent := src.Parent(), sink.Parent()

	src.mu.Lock()
	src.peer = nil
	src.caps = nil
	src.filter = nil
	src.mu.Unlock()
	sink.mu.Lock()
	sink.peer = nil
	sink.caps = nil
	sink.filter = nil
	sink.mu.Unlock()

	if srcParent != nil && sinkParent != nil {
		if s := srcParent.Scheduler(); s != nil && s == sinkParent.Scheduler() {
			s.PadUnlink(src, sink)
		}
	}
	logger.Debug("pads unlinked", "src", src.qualifiedName(), "sink", sink.qualifiedName())
}

// --- Activation ---

// ActivateMode switches the pad into (or out of) a scheduling mode,
// running the pad's activate hook when present.
func (p *Pad) ActivateMode(mode PadMode, active bool) bool {
	if p.Activate != nil {
		if !p.Activate(p, mode, active) {
			return false
		}
	}
	p.mu.Lock()
	p.active = active
	if active {
		p.mode = mode
		p.flushing = false
	} else {
		p.mode = PadModeInactive
		p.flushing = true
	}
	p.mu.Unlock()
	return true
}

// SetActive activates the pad in push mode or deactivates it.
func (p *Pad) SetActive(active bool) bool {
	if active {
		return p.ActivateMode(PadModePush, true)
	}
	return p.ActivateMode(PadModePush, false)
}

// --- Data transport ---

// Push sends a buffer from a source pad to its linked peer's chain
// function. The buffer reference is consumed in every outcome.
func (p *Pad) Push(b *buffer.Buffer) FlowReturn {
	if p.dir != DirSource {
		b.Unref()
		return FlowError
	}
	if !p.runProbes(FromBuffer(b)) {
		b.Unref()
		return FlowOK
	}
	if p.Flushing() {
		b.Unref()
		return FlowWrongState
	}
	peer := p.Peer()
	if peer == nil {
		b.Unref()
		return FlowNotLinked
	}
	return peer.chain(b)
}

// chain delivers a buffer into a sink pad, serialized per pad.
func (p *Pad) chain(b *buffer.Buffer) FlowReturn {
	if !p.IsActive() || p.Flushing() {
		b.Unref()
		return FlowWrongState
	}
	fn := p.Chain
	if fn == nil {
		b.Unref()
		return FlowNotLinked
	}
	p.streamMu.Lock()
	defer p.streamMu.Unlock()
	// Flush-start may have overtaken while waiting for the stream lock.
	if p.Flushing() {
		b.Unref()
		return FlowWrongState
	}
	p.markDataArrived()
	if parent := p.Parent(); parent != nil {
		metrics.BuffersPushed.WithLabelValues(parent.Name()).Inc()
	}
	return fn(p, b)
}

// markDataArrived flags the pad for Scheduler.PadSelect.
func (p *Pad) markDataArrived() {
	p.mu.Lock()
	p.selectMark = true
	parent := p.parent
	p.mu.Unlock()
	if parent != nil {
		if s := parent.Scheduler(); s != nil {
			s.dataArrived()
		}
	}
}

// takeSelectMark consumes the data-arrival mark.
func (p *Pad) takeSelectMark() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.selectMark
	p.selectMark = false
	return m
}

// PullRange requests data from the peer of a sink pad. A returned event
// is dispatched through this pad's event handling and (nil, FlowOK) is
// returned; callers treat that as "event consumed, call again".
func (p *Pad) PullRange(offset int64, length int) (*buffer.Buffer, FlowReturn) {
	if p.dir != DirSink {
		return nil, FlowError
	}
	if p.Flushing() {
		return nil, FlowWrongState
	}
	peer := p.Peer()
	if peer == nil {
		return nil, FlowNotLinked
	}
	if !peer.IsActive() {
		return nil, FlowWrongState
	}
	get := peer.GetRange
	if get == nil {
		return nil, FlowNotLinked
	}
	d, ret := get(peer, offset, length)
	if ret != FlowOK {
		return nil, ret
	}
	if d.Event != nil {
		p.SendEvent(d.Event)
		return nil, FlowOK
	}
	if d.Buffer == nil {
		// A NULL buffer with FlowOK is a peer bug.
		return nil, FlowError
	}
	return d.Buffer, FlowOK
}

// Pull requests the next buffer from the current position.
func (p *Pad) Pull() (*buffer.Buffer, FlowReturn) { return p.PullRange(-1, 0) }

// AllocBuffer returns an output buffer for this pad: the buffer-alloc
// hook when set, else a pooled allocation classed by the pad's
// negotiated media type.
func (p *Pad) AllocBuffer(size int) *buffer.Buffer {
	if p.BufferAlloc != nil {
		return p.BufferAlloc(p, size)
	}
	return buffer.AllocForCaps(p.Caps(), size)
}

// --- Events ---

// serializedEvent reports whether the event type is ordered with
// buffers on the link (flush-start is out-of-band).
func serializedEvent(t event.Type) bool {
	switch t {
	case event.NewSegment, event.EOS, event.Tag, event.Discont, event.FlushStop:
		return true
	default:
		return false
	}
}

// upstreamEvent reports whether the event travels against the dataflow.
func upstreamEvent(t event.Type) bool {
	switch t {
	case event.Seek, event.QOS, event.Navigation, event.BufferSize:
		return true
	default:
		return false
	}
}

// SendEvent delivers an event to this pad: probes run first, core
// bookkeeping (flush flags, EOS latch, clock disconts) is applied, then
// the pad's event hook or the default forwarding.
func (p *Pad) SendEvent(ev *event.Event) bool {
	if ev == nil {
		return false
	}
	if !p.runProbes(FromEvent(ev)) {
		ev.Unref()
		return true
	}
	metrics.EventsSent.WithLabelValues(ev.Type().String()).Inc()

	switch ev.Type() {
	case event.FlushStart:
		// Delivered out-of-band: in-flight pushes fail from here on.
		p.SetFlushing(true)
	case event.FlushStop:
		p.SetFlushing(false)
	}

	serialized := serializedEvent(ev.Type()) && p.dir == DirSink
	if serialized {
		p.streamMu.Lock()
	}

	p.applyEventSideEffects(ev)

	var res bool
	if p.Event != nil {
		res = p.Event(p, ev)
	} else {
		res = p.defaultEvent(ev)
	}
	if serialized {
		p.streamMu.Unlock()
	}
	return res
}

// applyEventSideEffects handles the core invariants attached to events.
func (p *Pad) applyEventSideEffects(ev *event.Event) {
	parent := p.Parent()
	if parent == nil {
		return
	}
	switch ev.Type() {
	case event.EOS:
		parent.setEOS(true)
	case event.FlushStop:
		parent.setEOS(false)
	case event.Discont:
		if t := ev.DiscontTime(); t != clock.None {
			if c := parent.Clock(); c != nil {
				if dh, ok := c.(clock.DiscontHandler); ok {
					dh.HandleDiscont(t)
				}
			}
		}
	}
}

// pushEvent forwards an event to the pad's peer.
func (p *Pad) pushEvent(ev *event.Event) bool {
	peer := p.Peer()
	if peer == nil {
		ev.Unref()
		return false
	}
	return peer.SendEvent(ev)
}

// defaultEvent implements the default handlers: a source pad forwards
// upstream events to all opposite-direction linked pads of its parent;
// a sink pad forwards upstream events via its peer; downstream events
// continue with the dataflow.
func (p *Pad) defaultEvent(ev *event.Event) bool {
	parent := p.Parent()
	if upstreamEvent(ev.Type()) {
		if p.dir == DirSink {
			return p.pushEvent(ev)
		}
		if parent == nil {
			ev.Unref()
			return false
		}
		handled := false
		for _, other := range parent.Pads() {
			if other.Direction() != p.dir.Opposite() || !other.IsLinked() {
				continue
			}
			if other.pushEvent(ev.Ref()) {
				handled = true
			}
		}
		ev.Unref()
		return handled
	}

	// Downstream events follow the dataflow.
	if p.dir == DirSource {
		return p.pushEvent(ev)
	}
	if parent == nil {
		ev.Unref()
		return false
	}
	handled := true
	for _, other := range parent.Pads() {
		if other.Direction() != DirSource || !other.IsLinked() {
			continue
		}
		if !other.pushEvent(ev.Ref()) {
			handled = false
		}
	}
	ev.Unref()
	return handled
}

// --- Queries and conversion ---

// RunQuery answers a query using the pad's query hook, falling back to
// the parent element.
func (p *Pad) RunQuery(q *Query) bool {
	if p.Query != nil {
		return p.Query(p, q)
	}
	if parent := p.Parent(); parent != nil {
		return parent.Query(q)
	}
	return false
}

// ConvertValue converts a value between formats on this pad; identity
// conversions always succeed.
func (p *Pad) ConvertValue(from format.Format, value int64, to format.Format) (int64, bool) {
	if from == to {
		return value, true
	}
	if p.Convert != nil {
		return p.Convert(p, from, value, to)
	}
	return 0, false
}

// InternalLinkedPads lists the element-internal pads this pad forwards
// to; by default all opposite-direction pads of the parent.
func (p *Pad) InternalLinkedPads() []*Pad {
	if p.InternalLinks != nil {
		return p.InternalLinks(p)
	}
	parent := p.Parent()
	if parent == nil {
		return nil
	}
	var out []*Pad
	for _, other := range parent.Pads() {
		if other.Direction() == p.dir.Opposite() {
			out = append(out, other)
		}
	}
	return out
}
