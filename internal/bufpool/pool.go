package bufpool

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Payload classes mirror the shapes media buffers actually take on a
// link: small event/header payloads, compressed audio frames, the
// default source blocksize, and whole video frames. Oversized requests
// fall through to plain allocation and are never pooled.
const (
	ClassEvent Class = iota
	ClassAudio
	ClassBlock
	ClassFrame
	numClasses
)

// Class names a payload size class.
type Class int

func (c Class) String() string {
	switch c {
	case ClassEvent:
		return "event"
	case ClassAudio:
		return "audio"
	case ClassBlock:
		return "block"
	case ClassFrame:
		return "frame"
	default:
		return "unpooled"
	}
}

// classSizes are the slice capacities backing each class.
var classSizes = [numClasses]int{
	ClassEvent: 256,
	ClassAudio: 2048,
	ClassBlock: 4096,
	ClassFrame: 65536,
}

// ClassFor returns the smallest class whose capacity covers size, or
// false when the request exceeds every class.
func ClassFor(size int) (Class, bool) {
	for c := ClassEvent; c < numClasses; c++ {
		if size <= classSizes[c] {
			return c, true
		}
	}
	return numClasses, false
}

// ClassForMedia maps a media type name onto the class that usually fits
// its payloads: audio frames are small, video frames large, anything
// else starts at the default blocksize. Size still wins when it needs a
// bigger class.
func ClassForMedia(mediaType string, size int) (Class, bool) {
	sized, ok := ClassFor(size)
	if !ok {
		return numClasses, false
	}
	hint := ClassBlock
	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		hint = ClassAudio
	case strings.HasPrefix(mediaType, "video/"):
		hint = ClassFrame
	}
	if sized > hint {
		return sized, true
	}
	return hint, true
}

// ClassStats counts pool traffic for one class.
type ClassStats struct {
	Gets uint64
	Puts uint64
}

// Stats is a snapshot of pool usage, including requests that bypassed
// the pool entirely.
type Stats struct {
	PerClass [numClasses]ClassStats
	Unpooled uint64
}

type classPool struct {
	pool *sync.Pool
	gets atomic.Uint64
	puts atomic.Uint64
}

// Pool provides sized byte slices backed by per-class reusable buffers
// to reduce GC churn on the data path.
type Pool struct {
	classes  [numClasses]classPool
	unpooled atomic.Uint64
}

var defaultPool = New()

// Get acquires a buffer from the package-level default pool.
func Get(size int) []byte {
	return defaultPool.Get(size)
}

// GetClass acquires a buffer of an explicit class from the default pool.
func GetClass(c Class, size int) []byte {
	return defaultPool.GetClass(c, size)
}

// Put releases a buffer back to the package-level default pool.
func Put(buf []byte) {
	defaultPool.Put(buf)
}

// DefaultStats snapshots the default pool's usage counters.
func DefaultStats() Stats {
	return defaultPool.Stats()
}

// New creates a buffer pool with one sync.Pool per payload class.
func New() *Pool {
	p := &Pool{}
	for c := ClassEvent; c < numClasses; c++ {
		size := classSizes[c]
		p.classes[c].pool = &sync.Pool{
			New: func() any {
				return make([]byte, size)
			},
		}
	}
	return p
}

// Get returns a byte slice whose length matches the requested size,
// drawn from the smallest class that can hold it. Requests larger than
// the biggest class allocate a fresh slice without pooling.
func (p *Pool) Get(size int) []byte {
	if p == nil || size <= 0 {
		return nil
	}
	c, ok := ClassFor(size)
	if !ok {
		p.unpooled.Add(1)
		return make([]byte, size)
	}
	return p.GetClass(c, size)
}

// GetClass returns a slice of the requested size from an explicit
// class, upgrading to a larger class when the size does not fit.
func (p *Pool) GetClass(c Class, size int) []byte {
	if p == nil || size <= 0 {
		return nil
	}
	if c < ClassEvent || c >= numClasses || size > classSizes[c] {
		sized, ok := ClassFor(size)
		if !ok {
			p.unpooled.Add(1)
			return make([]byte, size)
		}
		c = sized
	}
	cp := &p.classes[c]
	cp.gets.Add(1)
	buf := cp.pool.Get().([]byte)
	return buf[:size]
}

// Put returns the provided buffer to its class pool if its capacity
// matches a class exactly; anything else is discarded. The buffer is
// zeroed before reuse to avoid leaking payload bytes across elements.
func (p *Pool) Put(buf []byte) {
	if p == nil || buf == nil {
		return
	}
	capBuf := cap(buf)
	for c := ClassEvent; c < numClasses; c++ {
		if capBuf == classSizes[c] {
			full := buf[:capBuf]
			clear(full)
			p.classes[c].puts.Add(1)
			p.classes[c].pool.Put(full)
			return
		}
	}
}

// Stats snapshots the per-class and unpooled counters.
func (p *Pool) Stats() Stats {
	var s Stats
	if p == nil {
		return s
	}
	for c := ClassEvent; c < numClasses; c++ {
		s.PerClass[c] = ClassStats{
			Gets: p.classes[c].gets.Load(),
			Puts: p.classes[c].puts.Load(),
		}
	}
	s.Unpooled = p.unpooled.Load()
	return s
}
