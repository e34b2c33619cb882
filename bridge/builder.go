package bridge

import (
	"log"

	"github.com/sarchlab/amba/apb"
	"github.com/sarchlab/amba/sim"
)

// Builder can build bridges.
type Builder struct {
	downstream apb.Target
}

// MakeBuilder creates a new Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithDownstream sets the peripheral bus that the bridge drives.
func (b Builder) WithDownstream(t apb.Target) Builder {
	b.downstream = t
	return b
}

// Build creates the bridge.
func (b Builder) Build(name string) *Comp {
	if b.downstream == nil {
		log.Panicf("bridge %s has no downstream bus", name)
	}

	return &Comp{
		ComponentBase: sim.NewComponentBase(name),
		downstream:    b.downstream,
	}
}
