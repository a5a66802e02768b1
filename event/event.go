// Package event implements the tagged, refcounted event objects that flow
// through pad links alongside buffers: seeks, flushes, segment markers,
// EOS and the auxiliary notification types.
package event

import (
	"fmt"
	"sync/atomic"

	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/format"
)

// Type tags the event variant.
type Type int

const (
	Unknown Type = iota
	// Seek requests a reposition of the stream (travels upstream).
	Seek
	// FlushStart tells downstream to discard in-flight data immediately.
	FlushStart
	// FlushStop re-opens the dataflow after a flush.
	FlushStop
	// NewSegment announces the coordinates of the data that follows.
	NewSegment
	// EOS marks the end of the running segment; last event on a link.
	EOS
	// Discont marks a timestamp discontinuity.
	Discont
	// Tag carries stream metadata.
	Tag
	// QOS carries quality-of-service feedback (travels upstream).
	QOS
	// Navigation carries user navigation input (travels upstream).
	Navigation
	// BufferSize requests a downstream buffering configuration.
	BufferSize
)

func (t Type) String() string {
	switch t {
	case Seek:
		return "seek"
	case FlushStart:
		return "flush-start"
	case FlushStop:
		return "flush-stop"
	case NewSegment:
		return "new-segment"
	case EOS:
		return "eos"
	case Discont:
		return "discont"
	case Tag:
		return "tag"
	case QOS:
		return "qos"
	case Navigation:
		return "navigation"
	case BufferSize:
		return "buffer-size"
	default:
		return "unknown"
	}
}

// SeekFlags modify seek behavior.
type SeekFlags int

const (
	SeekFlagNone SeekFlags = 0
	// SeekFlagFlush discards in-flight data and resets stream time.
	SeekFlagFlush SeekFlags = 1 << iota
	// SeekFlagAccurate requests sample-accurate positioning.
	SeekFlagAccurate
	// SeekFlagKeyUnit allows snapping to the nearest key unit.
	SeekFlagKeyUnit
	// SeekFlagSegment requests segment-done notification instead of EOS.
	SeekFlagSegment
)

// SeekType selects how a seek boundary value is applied.
type SeekType int

const (
	// SeekTypeNone leaves the boundary unchanged.
	SeekTypeNone SeekType = iota
	// SeekTypeSet uses the value as an absolute position.
	SeekTypeSet
	// SeekTypeCur offsets relative to the current position.
	SeekTypeCur
	// SeekTypeEnd offsets relative to the end of the stream.
	SeekTypeEnd
)

// SeekDetails is the payload of a Seek event.
type SeekDetails struct {
	Rate      float64
	Format    format.Format
	Flags     SeekFlags
	StartType SeekType
	Start     int64
	StopType  SeekType
	Stop      int64
}

// SegmentDetails is the payload of a NewSegment event.
type SegmentDetails struct {
	Update      bool
	Rate        float64
	AppliedRate float64
	Format      format.Format
	Start       int64
	Stop        int64
	Time        int64
}

// QOSDetails is the payload of a QOS event.
type QOSDetails struct {
	Proportion float64
	Diff       int64
	Timestamp  clock.Time
}

// BufferSizeDetails is the payload of a BufferSize event.
type BufferSizeDetails struct {
	Format   format.Format
	MinSize  int64
	MaxSize  int64
	Async    bool
}

// Event is a refcounted tagged value object. The payload pointer for the
// variant is non-nil exactly when the type requires one; plain marker
// events (EOS, flushes) carry none. Source records the element that
// originated the event for debugging.
type Event struct {
	typ  Type
	refs int32

	// Source element name; set by Element.SendEvent.
	Source string

	seek       *SeekDetails
	segment    *SegmentDetails
	qos        *QOSDetails
	bufferSize *BufferSizeDetails
	// Discont position (TIME value relayed to the clock), None if unset.
	discontTime clock.Time
	// Tag key/value pairs.
	tags map[string]string
}

func newEvent(t Type) *Event {
	return &Event{typ: t, refs: 1, discontTime: clock.None}
}

// Type returns the variant tag.
func (e *Event) Type() Type { return e.typ }

// Ref increments the reference count and returns the event.
func (e *Event) Ref() *Event {
	atomic.AddInt32(&e.refs, 1)
	return e
}

// Unref decrements the reference count. The event must not be used after
// the count reaches zero.
func (e *Event) Unref() {
	if atomic.AddInt32(&e.refs, -1) < 0 {
		panic("event: unref of dead event")
	}
}

// RefCount returns the current reference count (tests only).
func (e *Event) RefCount() int { return int(atomic.LoadInt32(&e.refs)) }

// --- Constructors ---

// NewSeek creates a Seek event.
func NewSeek(rate float64, f format.Format, flags SeekFlags, startType SeekType, start int64, stopType SeekType, stop int64) *Event {
	e := newEvent(Seek)
	e.seek = &SeekDetails{Rate: rate, Format: f, Flags: flags, StartType: startType, Start: start, StopType: stopType, Stop: stop}
	return e
}

// NewFlushStart creates a FlushStart event.
func NewFlushStart() *Event { return newEvent(FlushStart) }

// NewFlushStop creates a FlushStop event.
func NewFlushStop() *Event { return newEvent(FlushStop) }

// NewNewSegment creates a NewSegment event describing upcoming data.
func NewNewSegment(update bool, rate, appliedRate float64, f format.Format, start, stop, tm int64) *Event {
	e := newEvent(NewSegment)
	e.segment = &SegmentDetails{Update: update, Rate: rate, AppliedRate: appliedRate, Format: f, Start: start, Stop: stop, Time: tm}
	return e
}

// NewEOS creates an EOS event.
func NewEOS() *Event { return newEvent(EOS) }

// NewDiscont creates a Discont event; t may be clock.None when the
// discontinuity has no known time position.
func NewDiscont(t clock.Time) *Event {
	e := newEvent(Discont)
	e.discontTime = t
	return e
}

// NewTag creates a Tag event from metadata pairs.
func NewTag(tags map[string]string) *Event {
	e := newEvent(Tag)
	e.tags = tags
	return e
}

// NewQOS creates a QOS event.
func NewQOS(proportion float64, diff int64, timestamp clock.Time) *Event {
	e := newEvent(QOS)
	e.qos = &QOSDetails{Proportion: proportion, Diff: diff, Timestamp: timestamp}
	return e
}

// NewNavigation creates a Navigation event.
func NewNavigation() *Event { return newEvent(Navigation) }

// NewBufferSize creates a BufferSize event.
func NewBufferSize(f format.Format, minSize, maxSize int64, async bool) *Event {
	e := newEvent(BufferSize)
	e.bufferSize = &BufferSizeDetails{Format: f, MinSize: minSize, MaxSize: maxSize, Async: async}
	return e
}

// --- Parse helpers ---

// ParseSeek returns the seek payload or an error for other event types.
func (e *Event) ParseSeek() (*SeekDetails, error) {
	if e.typ != Seek || e.seek == nil {
		return nil, fmt.Errorf("event: parse seek on %s event", e.typ)
	}
	return e.seek, nil
}

// ParseNewSegment returns the segment payload or an error.
func (e *Event) ParseNewSegment() (*SegmentDetails, error) {
	if e.typ != NewSegment || e.segment == nil {
		return nil, fmt.Errorf("event: parse new-segment on %s event", e.typ)
	}
	return e.segment, nil
}

// ParseQOS returns the QOS payload or an error.
func (e *Event) ParseQOS() (*QOSDetails, error) {
	if e.typ != QOS || e.qos == nil {
		return nil, fmt.Errorf("event: parse qos on %s event", e.typ)
	}
	return e.qos, nil
}

// ParseBufferSize returns the buffer-size payload or an error.
func (e *Event) ParseBufferSize() (*BufferSizeDetails, error) {
	if e.typ != BufferSize || e.bufferSize == nil {
		return nil, fmt.Errorf("event: parse buffer-size on %s event", e.typ)
	}
	return e.bufferSize, nil
}

// DiscontTime returns the TIME position of a Discont event (clock.None
// when unset or for other types).
func (e *Event) DiscontTime() clock.Time {
	if e.typ != Discont {
		return clock.None
	}
	return e.discontTime
}

// Tags returns the metadata of a Tag event (nil for other types).
func (e *Event) Tags() map[string]string {
	if e.typ != Tag {
		return nil
	}
	return e.tags
}
