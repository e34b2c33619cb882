package interconnect

import (
	"log"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/ahb/mux"
	"github.com/sarchlab/amba/decoder"
	"github.com/sarchlab/amba/sim"
)

// Builder can build interconnects.
type Builder struct {
	decoder decoder.Builder
	targets []ahb.Target
}

// MakeBuilder creates a builder without targets.
func MakeBuilder() Builder {
	return Builder{decoder: decoder.MakeBuilder()}
}

// WithTarget maps a region of the address space to a target. Targets are
// selected in the order they are added.
func (b Builder) WithTarget(
	name string,
	base uint32,
	size uint64,
	t ahb.Target,
) Builder {
	sel := decoder.Selector(len(b.targets))
	b.decoder = b.decoder.WithRegion(name, base, size, sel)
	b.targets = append(append([]ahb.Target(nil), b.targets...), t)

	return b
}

// Build creates the interconnect. It panics if the regions overlap.
func (b Builder) Build(name string) *Comp {
	if len(b.targets) == 0 {
		log.Panicf("interconnect %s has no target", name)
	}

	return &Comp{
		ComponentBase: sim.NewComponentBase(name),
		decoder:       b.decoder.Build(),
		targets:       b.targets,
		mux:           mux.New(),
		responses:     make([]ahb.Response, len(b.targets)),
	}
}
