package elements

import (
	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/registry"
)

// Register adds the core element factories to a registry.
func Register(r *registry.Registry) error {
	factories := []*registry.Factory{
		{
			Name:        "fakesrc",
			Description: "Synthetic pattern source",
			Rank:        0,
			New:         func(name string) core.ElementProvider { return NewFakeSrc(name) },
		},
		{
			Name:        "fakesink",
			Description: "Recording sink",
			Rank:        0,
			New:         func(name string) core.ElementProvider { return NewFakeSink(name) },
		},
		{
			Name:        "identity",
			Description: "Passthrough element",
			Rank:        0,
			New:         func(name string) core.ElementProvider { return NewIdentity(name) },
		},
		{
			Name:        "queue",
			Description: "Decoupled scheduler bridge",
			Rank:        128,
			New:         func(name string) core.ElementProvider { return NewQueue(name) },
		},
	}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}
