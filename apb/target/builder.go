package target

import (
	"log"

	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/storage"
)

// Builder can build APB register blocks.
type Builder struct {
	base       uint32
	size       uint64
	waitCycles int
	readOnly   bool
	words      map[uint32]uint32
}

// MakeBuilder creates a builder of a 256-byte block at address 0.
func MakeBuilder() Builder {
	return Builder{size: 256}
}

// WithBase sets the first address of the block.
func (b Builder) WithBase(base uint32) Builder {
	b.base = base
	return b
}

// WithSize sets the size of the block in bytes.
func (b Builder) WithSize(size uint64) Builder {
	b.size = size
	return b
}

// WithWaitCycles sets how many ACCESS cycles keep PREADY low.
func (b Builder) WithWaitCycles(n int) Builder {
	b.waitCycles = n
	return b
}

// WithReadOnly makes the block answer writes with PSLVERR.
func (b Builder) WithReadOnly() Builder {
	b.readOnly = true
	return b
}

// WithRegister sets the reset value of the word at addr.
func (b Builder) WithRegister(addr uint32, value uint32) Builder {
	words := make(map[uint32]uint32, len(b.words)+1)
	for k, v := range b.words {
		words[k] = v
	}

	words[addr] = value
	b.words = words

	return b
}

// Build creates the register block.
func (b Builder) Build(name string) *Comp {
	if b.waitCycles < 0 {
		log.Panicf("apb target %s: wait cycles cannot be negative", name)
	}

	w := storage.NewWindow(b.base, b.size, b.readOnly)
	for addr, value := range b.words {
		if err := w.WriteWord(addr, value); err != nil {
			log.Panicf("apb target %s: %v", name, err)
		}
	}

	return &Comp{
		ComponentBase: sim.NewComponentBase(name),
		window:        w,
		waitCycles:    b.waitCycles,
	}
}
