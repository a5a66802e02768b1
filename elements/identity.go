package elements

import (
	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/core"
)

// Identity forwards buffers and events unchanged. It exists to splice
// probes and tests into a link without touching the stream.
type Identity struct {
	el   *core.Element
	sink *core.Pad
	src  *core.Pad
}

// NewIdentity creates an identity element.
func NewIdentity(name string) *Identity {
	i := &Identity{}
	i.el = core.NewElement(name)
	i.el.SetOwner(i)
	i.el.ChangeState = i.changeState

	i.sink = core.NewPad("sink", core.DirSink)
	i.sink.Chain = i.chain
	i.src = core.NewPad("src", core.DirSource)
	if err := i.el.AddPad(i.sink); err != nil {
		panic(err)
	}
	if err := i.el.AddPad(i.src); err != nil {
		panic(err)
	}
	return i
}

// Element returns the underlying element.
func (i *Identity) Element() *core.Element { return i.el }

// SinkPad returns the input pad.
func (i *Identity) SinkPad() *core.Pad { return i.sink }

// SrcPad returns the output pad.
func (i *Identity) SrcPad() *core.Pad { return i.src }

func (i *Identity) chain(_ *core.Pad, b *buffer.Buffer) core.FlowReturn {
	return i.src.Push(b)
}

func (i *Identity) changeState(el *core.Element, tr core.Transition) core.StateReturn {
	switch {
	case tr.From == core.StateReady && tr.To == core.StatePaused:
		if !i.sink.SetActive(true) || !i.src.SetActive(true) {
			return core.StateFailure
		}
	case tr.From == core.StatePaused && tr.To == core.StateReady:
		if !i.sink.SetActive(false) || !i.src.SetActive(false) {
			return core.StateFailure
		}
	}
	return core.StateSuccess
}
