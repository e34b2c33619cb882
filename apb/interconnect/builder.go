package interconnect

import (
	"log"

	"github.com/sarchlab/amba/apb"
	"github.com/sarchlab/amba/decoder"
	"github.com/sarchlab/amba/sim"
)

// Builder can build peripheral bus interconnects.
type Builder struct {
	decoder decoder.Builder
	targets []apb.Target
}

// MakeBuilder creates a builder without completers.
func MakeBuilder() Builder {
	return Builder{decoder: decoder.MakeBuilder()}
}

// WithTarget maps an address region to a completer.
func (b Builder) WithTarget(
	name string,
	base uint32,
	size uint64,
	t apb.Target,
) Builder {
	sel := decoder.Selector(len(b.targets))
	b.decoder = b.decoder.WithRegion(name, base, size, sel)
	b.targets = append(append([]apb.Target(nil), b.targets...), t)

	return b
}

// Build creates the interconnect.
func (b Builder) Build(name string) *Comp {
	if len(b.targets) == 0 {
		log.Panicf("apb interconnect %s has no target", name)
	}

	return &Comp{
		ComponentBase: sim.NewComponentBase(name),
		decoder:       b.decoder.Build(),
		targets:       b.targets,
	}
}
