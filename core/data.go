package core

import (
	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/event"
)

// Data is the sum of the two item kinds that traverse a pad link.
// Exactly one of the fields is non-nil.
type Data struct {
	Buffer *buffer.Buffer
	Event  *event.Event
}

// FromBuffer wraps a buffer.
func FromBuffer(b *buffer.Buffer) Data { return Data{Buffer: b} }

// FromEvent wraps an event.
func FromEvent(e *event.Event) Data { return Data{Event: e} }

// IsEvent reports whether the item carries an event.
func (d Data) IsEvent() bool { return d.Event != nil }
