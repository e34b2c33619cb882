package accessagent

import (
	"log"
	"math/rand"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/sim"
)

// Builder can build AccessAgents.
type Builder struct {
	bus       *fabric.Bus
	master    int
	base      uint32
	size      uint32
	seed      int64
	writeLeft int
	readLeft  int
}

// MakeBuilder creates a builder for an agent that works on a 4KB window.
func MakeBuilder() Builder {
	return Builder{
		size:      4096,
		seed:      1,
		writeLeft: 1000,
		readLeft:  1000,
	}
}

// WithBus sets the bus and the master that the agent issues through.
func (b Builder) WithBus(bus *fabric.Bus, master int) Builder {
	b.bus = bus
	b.master = master

	return b
}

// WithWindow sets the address range that the agent accesses.
func (b Builder) WithWindow(base, size uint32) Builder {
	b.base = base
	b.size = size

	return b
}

// WithSeed sets the seed of the random traffic.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithWriteLeft sets the number of writes to issue.
func (b Builder) WithWriteLeft(n int) Builder {
	b.writeLeft = n
	return b
}

// WithReadLeft sets the number of reads to issue.
func (b Builder) WithReadLeft(n int) Builder {
	b.readLeft = n
	return b
}

// Build creates the agent.
func (b Builder) Build(name string) *AccessAgent {
	if b.bus == nil {
		log.Panicf("agent %s has no bus", name)
	}

	if b.base%64 != 0 || b.size < 64 || b.size%64 != 0 {
		log.Panicf("agent %s: window must be 64-byte aligned", name)
	}

	return &AccessAgent{
		ComponentBase: sim.NewComponentBase(name),
		bus:           b.bus,
		master:        b.master,
		base:          b.base,
		size:          b.size,
		rand:          rand.New(rand.NewSource(b.seed)),
		WriteLeft:     b.writeLeft,
		ReadLeft:      b.readLeft,
		KnownValue:    make(map[uint32]uint32),
		pending:       make(map[*ahb.Transaction]access),
	}
}
