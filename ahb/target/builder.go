package target

import (
	"log"

	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/storage"
)

// Builder can build AHB targets.
type Builder struct {
	base       uint32
	size       uint64
	waitCycles int
	readOnly   bool
	image      []byte
	window     *storage.Window
}

// MakeBuilder creates a builder with a 1KB window at address 0.
func MakeBuilder() Builder {
	return Builder{
		size: 1024,
	}
}

// WithBase sets the first address of the window.
func (b Builder) WithBase(base uint32) Builder {
	b.base = base
	return b
}

// WithSize sets the size of the window in bytes.
func (b Builder) WithSize(size uint64) Builder {
	b.size = size
	return b
}

// WithWaitCycles sets the number of wait states of each access.
func (b Builder) WithWaitCycles(n int) Builder {
	b.waitCycles = n
	return b
}

// WithReadOnly makes the target reject writes.
func (b Builder) WithReadOnly() Builder {
	b.readOnly = true
	return b
}

// WithInitialData preloads the window from its first byte.
func (b Builder) WithInitialData(image []byte) Builder {
	b.image = image
	return b
}

// WithWindow serves an existing window instead of creating one. Base, size
// and read-only settings are taken from the window.
func (b Builder) WithWindow(w *storage.Window) Builder {
	b.window = w
	return b
}

// Build creates the target.
func (b Builder) Build(name string) *Comp {
	if b.waitCycles < 0 {
		log.Panicf("target %s: wait cycles cannot be negative", name)
	}

	w := b.window
	if w == nil {
		w = storage.NewWindow(b.base, b.size, b.readOnly)
	}

	if b.image != nil {
		if err := w.Store.Load(0, b.image); err != nil {
			log.Panicf("target %s: %v", name, err)
		}
	}

	return &Comp{
		ComponentBase: sim.NewComponentBase(name),
		window:        w,
		waitCycles:    b.waitCycles,
	}
}
