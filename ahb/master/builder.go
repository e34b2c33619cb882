package master

import (
	"log"

	"github.com/sarchlab/amba/sim"
)

// Builder can build masters.
type Builder struct {
	queueSize int
}

// MakeBuilder creates a builder with the default queue size.
func MakeBuilder() Builder {
	return Builder{queueSize: 16}
}

// WithQueueSize sets how many transactions can wait to be issued.
func (b Builder) WithQueueSize(n int) Builder {
	b.queueSize = n
	return b
}

// Build creates the master.
func (b Builder) Build(name string) *Comp {
	if b.queueSize <= 0 {
		log.Panicf("master %s: queue size must be positive", name)
	}

	return &Comp{
		ComponentBase: sim.NewComponentBase(name),
		queue:         sim.NewBuffer(name+".Queue", b.queueSize),
	}
}
