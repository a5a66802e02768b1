// Package buffer implements the refcounted media buffers moved across pad
// links: payload bytes plus timing, offset and caps metadata, with
// copy-on-write semantics for shared buffers.
package buffer

import (
	"sync/atomic"

	"github.com/avfoundry/go-streamline/caps"
	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/internal/bufpool"
)

// OffsetNone marks an unknown offset.
const OffsetNone uint64 = ^uint64(0)

// Flags carry per-buffer markers.
type Flags uint32

const (
	// FlagDiscont marks the first buffer after a discontinuity (seek).
	FlagDiscont Flags = 1 << iota
	// FlagReadOnly forbids in-place mutation regardless of refcount.
	FlagReadOnly
	// FlagPreroll marks a buffer produced for preroll only.
	FlagPreroll
	// FlagGap marks a buffer that carries no real data.
	FlagGap
)

// Buffer is a refcounted unit of media data. Metadata mutation requires
// writability: refcount == 1 and not read-only; use MakeWritable to
// obtain a mutable copy otherwise.
type Buffer struct {
	Data      []byte
	Timestamp clock.Time
	Duration  clock.Time
	Offset    uint64
	OffsetEnd uint64
	Caps      *caps.Caps
	Flags     Flags

	refs   int32
	pooled bool
}

// New creates a buffer wrapping the given payload.
func New(data []byte) *Buffer {
	return &Buffer{
		Data:      data,
		Timestamp: clock.None,
		Duration:  clock.None,
		Offset:    OffsetNone,
		OffsetEnd: OffsetNone,
		refs:      1,
	}
}

// Alloc creates a buffer with a payload of the given size drawn from the
// shared byte pool.
func Alloc(size int) *Buffer {
	b := New(bufpool.Get(size))
	b.pooled = true
	return b
}

// AllocForCaps allocates like Alloc but picks the payload class from
// the caps' media type (audio frames pool small, video frames large),
// and stamps the caps on the buffer.
func AllocForCaps(c *caps.Caps, size int) *Buffer {
	media := ""
	if c != nil && c.Len() > 0 {
		media = c.Structure(0).Name
	}
	var data []byte
	if cls, ok := bufpool.ClassForMedia(media, size); ok {
		data = bufpool.GetClass(cls, size)
	} else {
		data = bufpool.Get(size)
	}
	b := New(data)
	b.pooled = true
	b.Caps = c
	return b
}

// Size returns the payload length in bytes.
func (b *Buffer) Size() int { return len(b.Data) }

// Ref increments the reference count and returns the buffer.
func (b *Buffer) Ref() *Buffer {
	atomic.AddInt32(&b.refs, 1)
	return b
}

// Unref decrements the reference count; the final unref returns a pooled
// payload to the byte pool.
func (b *Buffer) Unref() {
	n := atomic.AddInt32(&b.refs, -1)
	if n < 0 {
		panic("buffer: unref of dead buffer")
	}
	if n == 0 && b.pooled {
		bufpool.Put(b.Data)
		b.Data = nil
	}
}

// RefCount returns the current reference count (tests only).
func (b *Buffer) RefCount() int { return int(atomic.LoadInt32(&b.refs)) }

// IsWritable reports whether in-place mutation is permitted.
func (b *Buffer) IsWritable() bool {
	return atomic.LoadInt32(&b.refs) == 1 && b.Flags&FlagReadOnly == 0
}

// Copy returns an independent deep copy of the buffer with refcount 1.
// The read-only flag is not inherited; the copy is freshly owned.
func (b *Buffer) Copy() *Buffer {
	c := AllocForCaps(b.Caps, len(b.Data))
	copy(c.Data, b.Data)
	c.Timestamp = b.Timestamp
	c.Duration = b.Duration
	c.Offset = b.Offset
	c.OffsetEnd = b.OffsetEnd
	c.Caps = b.Caps
	c.Flags = b.Flags &^ FlagReadOnly
	return c
}

// MakeWritable returns a buffer safe to mutate: the receiver itself when
// already writable, else a copy. When a copy is made the caller's
// reference to the original is released.
func (b *Buffer) MakeWritable() *Buffer {
	if b.IsWritable() {
		return b
	}
	c := b.Copy()
	b.Unref()
	return c
}
