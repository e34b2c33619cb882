package storage

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfWindow is returned for an access outside the window.
	ErrOutOfWindow = errors.New("address outside the target window")

	// ErrReadOnly is returned for a write to a read-only window.
	ErrReadOnly = errors.New("write to a read-only window")
)

// WordBytes is the size of the word that a window reads and writes.
const WordBytes = 4

// A Window exposes a Storage at a bus address range. Accesses move whole
// little-endian words; the byte lanes of a write are selected by a strobe.
type Window struct {
	Base     uint32
	Size     uint64
	ReadOnly bool
	Store    *Storage
}

// NewWindow creates a window over a fresh storage of the window size.
func NewWindow(base uint32, size uint64, readOnly bool) *Window {
	if base%WordBytes != 0 || size%WordBytes != 0 || size == 0 {
		panic("window base and size must be non-zero multiples of the word")
	}

	return &Window{
		Base:     base,
		Size:     size,
		ReadOnly: readOnly,
		Store:    New(size),
	}
}

// Contains tells if the byte range [addr, addr+n) lies in the window.
func (w *Window) Contains(addr uint32, n uint32) bool {
	if addr < w.Base {
		return false
	}

	offset := uint64(addr - w.Base)

	return offset < w.Size && uint64(n) <= w.Size-offset
}

// Check reports the fault that an access would raise, without touching the
// storage.
func (w *Window) Check(addr uint32, write bool, n uint32) error {
	if !w.Contains(addr, n) {
		return errors.Wrapf(ErrOutOfWindow,
			"0x%08x not in [0x%08x, 0x%08x]",
			addr, w.Base, uint64(w.Base)+w.Size-1)
	}

	if write && w.ReadOnly {
		return errors.Wrapf(ErrReadOnly, "address 0x%08x", addr)
	}

	return nil
}

// Access performs a transfer of n bytes at addr. Reads return the whole
// word that contains addr. Writes store the lanes of wdata that strobe
// selects. A faulting access leaves the storage unchanged.
func (w *Window) Access(
	addr uint32,
	write bool,
	n uint32,
	wdata uint32,
	strobe uint8,
) (uint32, error) {
	if err := w.Check(addr, write, n); err != nil {
		return 0, err
	}

	offset := uint64(addr&^(WordBytes-1)) - uint64(w.Base)

	if write {
		return 0, w.Store.WriteWithMask(
			offset, WordToBytes(wdata), StrobeToMask(strobe))
	}

	data, err := w.Store.Read(offset, WordBytes)
	if err != nil {
		return 0, err
	}

	return BytesToWord(data), nil
}

// ReadWord returns the word at addr without any fault check beyond the
// window range. It is a debug path that does not model bus timing.
func (w *Window) ReadWord(addr uint32) (uint32, error) {
	return w.Access(addr&^(WordBytes-1), false, WordBytes, 0, 0)
}

// WriteWord stores a full word at addr, ignoring the read-only flag. It is
// used to preload contents.
func (w *Window) WriteWord(addr uint32, word uint32) error {
	if !w.Contains(addr&^(WordBytes-1), WordBytes) {
		return errors.Wrapf(ErrOutOfWindow, "0x%08x", addr)
	}

	offset := uint64(addr&^(WordBytes-1)) - uint64(w.Base)

	return w.Store.Write(offset, []byte{
		byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24),
	})
}

// StrobeToMask expands a lane strobe into one flag per byte of a word.
func StrobeToMask(strobe uint8) []bool {
	mask := make([]bool, WordBytes)
	for i := range mask {
		mask[i] = strobe&(1<<i) != 0
	}

	return mask
}

// WordToBytes splits a word into little-endian bytes.
func WordToBytes(word uint32) []byte {
	return []byte{
		byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24),
	}
}

// BytesToWord assembles a word from little-endian bytes.
func BytesToWord(b []byte) uint32 {
	var w uint32
	for i := len(b) - 1; i >= 0; i-- {
		w = w<<8 | uint32(b[i])
	}

	return w
}
