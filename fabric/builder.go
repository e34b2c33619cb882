package fabric

import (
	"log"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/ahb/arbiter"
	"github.com/sarchlab/amba/ahb/master"
	"github.com/sarchlab/amba/sim"
)

// Builder can build buses.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	masters   []*master.Comp
	target    ahb.Target
	queueSize int
}

// MakeBuilder creates a builder for a 100MHz bus.
func MakeBuilder() Builder {
	return Builder{
		freq:      100 * sim.MHz,
		queueSize: 16,
	}
}

// WithEngine sets the engine that ticks the bus.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the bus clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMaster attaches a master. Masters are arbitrated in the order they
// are attached.
func (b Builder) WithMaster(m *master.Comp) Builder {
	b.masters = append(append([]*master.Comp(nil), b.masters...), m)
	return b
}

// WithNumMasters attaches n masters created with the default queue size.
// They are named after the bus when it is built.
func (b Builder) WithNumMasters(n int) Builder {
	for i := 0; i < n; i++ {
		b = b.WithMaster(nil)
	}

	return b
}

// WithQueueSize sets the queue size of the masters created by
// WithNumMasters.
func (b Builder) WithQueueSize(n int) Builder {
	b.queueSize = n
	return b
}

// WithTarget sets the component that serves the bus, usually an
// interconnect.
func (b Builder) WithTarget(t ahb.Target) Builder {
	b.target = t
	return b
}

// Build creates the bus. An arbiter is only created for more than one
// master.
func (b Builder) Build(name string) *Bus {
	if len(b.masters) == 0 {
		log.Panicf("bus %s has no master", name)
	}

	if b.target == nil {
		log.Panicf("bus %s has no target", name)
	}

	bus := &Bus{
		target:    b.target,
		freq:      b.freq,
		dataOwner: arbiter.None,
	}
	bus.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, bus)

	for i, m := range b.masters {
		if m == nil {
			m = master.MakeBuilder().
				WithQueueSize(b.queueSize).
				Build(sim.BuildNameWithIndex(name, "Master", i))
		}

		bus.masters = append(bus.masters, m)
	}

	if len(bus.masters) > 1 {
		bus.arbiter = arbiter.MakeBuilder().
			WithNumMasters(len(bus.masters)).
			Build(sim.BuildName(name, "Arbiter"))
	}

	return bus
}
