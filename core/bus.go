package core

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avfoundry/go-streamline/caps"
	"github.com/avfoundry/go-streamline/format"
	"github.com/avfoundry/go-streamline/internal/metrics"
)

// MessageType tags bus messages delivered to the application.
type MessageType int

const (
	MsgUnknown MessageType = iota
	// MsgEOS signals the pipeline reached end-of-stream.
	MsgEOS
	// MsgError carries a fatal element error.
	MsgError
	// MsgWarning carries a non-fatal element problem.
	MsgWarning
	// MsgStateChanged reports a committed element transition.
	MsgStateChanged
	// MsgSegmentDone reports completion of a SEGMENT-flagged seek range.
	MsgSegmentDone
	// MsgCapsChanged reports freshly negotiated caps on a pad.
	MsgCapsChanged
	// MsgTag carries stream metadata found by elements.
	MsgTag
)

func (t MessageType) String() string {
	switch t {
	case MsgEOS:
		return "eos"
	case MsgError:
		return "error"
	case MsgWarning:
		return "warning"
	case MsgStateChanged:
		return "state-changed"
	case MsgSegmentDone:
		return "segment-done"
	case MsgCapsChanged:
		return "caps-changed"
	case MsgTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Message is one item on the pipeline bus. Src records the posting
// element; the remaining fields are per-type payload.
type Message struct {
	ID   uuid.UUID
	Type MessageType
	Src  *Element

	// Error payload.
	Err   error
	Debug string

	// State-changed payload.
	OldState State
	NewState State

	// Segment-done payload.
	Format   format.Format
	Position int64

	// Caps-changed payload.
	PadName string
	Caps    *caps.Caps

	// Tag payload.
	Tags map[string]string
}

func newMessage(t MessageType, src *Element) *Message {
	return &Message{ID: uuid.New(), Type: t, Src: src}
}

// NewEOSMessage builds an end-of-stream message.
func NewEOSMessage(src *Element) *Message { return newMessage(MsgEOS, src) }

// NewErrorMessage builds an error message with debug detail.
func NewErrorMessage(src *Element, err error, debug string) *Message {
	m := newMessage(MsgError, src)
	m.Err = err
	m.Debug = debug
	return m
}

// NewWarningMessage builds a warning message.
func NewWarningMessage(src *Element, err error, debug string) *Message {
	m := newMessage(MsgWarning, src)
	m.Err = err
	m.Debug = debug
	return m
}

// NewStateChangedMessage reports a committed transition.
func NewStateChangedMessage(src *Element, from, to State) *Message {
	m := newMessage(MsgStateChanged, src)
	m.OldState = from
	m.NewState = to
	return m
}

// NewSegmentDoneMessage reports a finished segment seek.
func NewSegmentDoneMessage(src *Element, f format.Format, pos int64) *Message {
	m := newMessage(MsgSegmentDone, src)
	m.Format = f
	m.Position = pos
	return m
}

// NewCapsChangedMessage reports the caps negotiated on a pad.
func NewCapsChangedMessage(src *Element, padName string, c *caps.Caps) *Message {
	m := newMessage(MsgCapsChanged, src)
	m.PadName = padName
	m.Caps = c
	return m
}

// NewTagMessage carries metadata to the application.
func NewTagMessage(src *Element, tags map[string]string) *Message {
	m := newMessage(MsgTag, src)
	m.Tags = tags
	return m
}

// Bus is the MPSC message queue between the pipeline's streaming threads
// and the application thread. Producers post from any goroutine; the
// consumer drains with Pop/TimedPop on its own thread.
type Bus struct {
	mu       sync.Mutex
	notify   chan struct{}
	queue    []*Message
	flushing bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{notify: make(chan struct{})}
}

// wakeLocked re-arms the notify channel; called with the mutex held.
func (b *Bus) wakeLocked() {
	close(b.notify)
	b.notify = make(chan struct{})
}

// Post appends a message; posts on a flushing bus are dropped.
func (b *Bus) Post(m *Message) {
	if m == nil {
		return
	}
	b.mu.Lock()
	if b.flushing {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, m)
	b.wakeLocked()
	b.mu.Unlock()
	metrics.BusMessages.WithLabelValues(m.Type.String()).Inc()
}

// Pop removes and returns the oldest message, or nil when empty.
func (b *Bus) Pop() *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	m := b.queue[0]
	b.queue = b.queue[1:]
	return m
}

// TimedPop blocks up to timeout for a message; nil on timeout.
func (b *Bus) TimedPop(timeout time.Duration) *Message {
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			m := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return m
		}
		ch := b.notify
		b.mu.Unlock()
		select {
		case <-ch:
		case <-t.C:
			return nil
		}
	}
}

// Peek returns the oldest message without removing it.
func (b *Bus) Peek() *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	return b.queue[0]
}

// Len returns the number of queued messages.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Flush drops all queued messages.
func (b *Bus) Flush() {
	b.mu.Lock()
	b.queue = nil
	b.mu.Unlock()
}

// SetFlushing makes the bus drop new posts (and flushes when enabled).
func (b *Bus) SetFlushing(f bool) {
	b.mu.Lock()
	b.flushing = f
	if f {
		b.queue = nil
	}
	b.wakeLocked()
	b.mu.Unlock()
}
