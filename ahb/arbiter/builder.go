package arbiter

import (
	"log"

	"github.com/sarchlab/amba/sim"
)

// Builder can build arbiters.
type Builder struct {
	numMasters int
}

// MakeBuilder creates a builder for a two-master arbiter.
func MakeBuilder() Builder {
	return Builder{numMasters: 2}
}

// WithNumMasters sets the number of masters.
func (b Builder) WithNumMasters(n int) Builder {
	b.numMasters = n
	return b
}

// Build creates the arbiter. No master is granted at first.
func (b Builder) Build(name string) *Arbiter {
	if b.numMasters <= 0 {
		log.Panicf("arbiter %s needs at least one master", name)
	}

	return &Arbiter{
		ComponentBase: sim.NewComponentBase(name),
		numMasters:    b.numMasters,
		grant:         None,
		last:          None,
	}
}
