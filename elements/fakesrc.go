// Package elements provides the core element set the framework ships
// with: a synthetic source and sink for testing and bring-up, an
// identity passthrough, and the decoupled queue bridging schedulers.
package elements

import (
	"sync"

	"github.com/avfoundry/go-streamline/base"
	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/core"
)

// FakeSrc is a synthetic byte source: it produces pattern-filled
// buffers of the configured block size, optionally bounded by a total
// size and a buffer budget.
type FakeSrc struct {
	*base.Source

	mu      sync.Mutex
	size    int64
	pattern byte
}

// NewFakeSrc creates a fake source. The size is unknown until SetSize.
func NewFakeSrc(name string) *FakeSrc {
	f := &FakeSrc{size: -1}
	f.Source = base.New(name, nil, base.Hooks{
		Create:     f.create,
		GetSize:    f.getSize,
		IsSeekable: func(*base.Source) bool { return true },
	})
	return f
}

// SetSize bounds the produced byte range (negative = unbounded).
func (f *FakeSrc) SetSize(n int64) {
	f.mu.Lock()
	f.size = n
	f.mu.Unlock()
}

// SetPattern sets the fill byte for produced payloads.
func (f *FakeSrc) SetPattern(p byte) {
	f.mu.Lock()
	f.pattern = p
	f.mu.Unlock()
}

func (f *FakeSrc) getSize(*base.Source) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.size < 0 {
		return 0, false
	}
	return f.size, true
}

func (f *FakeSrc) create(_ *base.Source, offset int64, length int) (*buffer.Buffer, core.FlowReturn) {
	f.mu.Lock()
	pattern := f.pattern
	f.mu.Unlock()
	b := f.Pad().AllocBuffer(length)
	for i := range b.Data {
		b.Data[i] = pattern
	}
	if offset >= 0 {
		b.Offset = uint64(offset)
		b.OffsetEnd = uint64(offset) + uint64(length)
	}
	return b, core.FlowOK
}
