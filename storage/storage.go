// Package storage provides the backing store of bus targets.
package storage

import (
	"github.com/pkg/errors"
)

// ErrOutOfCapacity is returned when an access touches bytes beyond the
// capacity of the storage.
var ErrOutOfCapacity = errors.New("accessing address beyond the storage capacity")

// DefaultUnitSize is the allocation granularity of a Storage.
const DefaultUnitSize = 4096

// A Storage keeps the bytes behind an addressable target.
//
// The storage manages its bytes in units, similar to pages. Units that are
// never touched by Read or Write are never allocated, so a large window can
// be modelled with little host memory. Addresses are offsets from zero; the
// owner translates bus addresses before calling.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// New creates a storage object with the specified capacity.
func New(capacity uint64) *Storage {
	return NewWithUnitSize(capacity, DefaultUnitSize)
}

// NewWithUnitSize creates a storage whose units are unitSize bytes.
func NewWithUnitSize(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("unit size cannot be 0")
	}

	s := new(Storage)
	s.unitSize = unitSize
	s.capacity = capacity
	s.data = make(map[uint64][]byte)

	return s
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// NumAllocatedUnits returns how many units have been touched.
func (s *Storage) NumAllocatedUnits() int {
	return len(s.data)
}

func (s *Storage) checkRange(address, length uint64) error {
	if address >= s.capacity || length > s.capacity-address {
		return errors.Wrapf(ErrOutOfCapacity,
			"address 0x%x, length %d, capacity %d",
			address, length, s.capacity)
	}

	return nil
}

func (s *Storage) unit(baseAddr uint64) []byte {
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read returns length bytes starting from address.
func (s *Storage) Read(address, length uint64) ([]byte, error) {
	if err := s.checkRange(address, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	currAddr := address
	offset := uint64(0)

	for offset < length {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		n := min(length-offset, s.unitSize-inUnitAddr)

		if unit, ok := s.data[baseAddr]; ok {
			copy(res[offset:offset+n], unit[inUnitAddr:inUnitAddr+n])
		}

		offset += n
		currAddr += n
	}

	return res, nil
}

// Write stores data starting from address.
func (s *Storage) Write(address uint64, data []byte) error {
	return s.WriteWithMask(address, data, nil)
}

// WriteWithMask stores the bytes of data whose mask bit is set. A nil mask
// writes every byte. Nothing is written if the range is out of capacity.
func (s *Storage) WriteWithMask(
	address uint64,
	data []byte,
	mask []bool,
) error {
	if mask != nil && len(mask) != len(data) {
		return errors.Errorf("mask length %d does not match data length %d",
			len(mask), len(data))
	}

	if err := s.checkRange(address, uint64(len(data))); err != nil {
		return err
	}

	for i, b := range data {
		if mask != nil && !mask[i] {
			continue
		}

		baseAddr, inUnitAddr := s.parseAddress(address + uint64(i))
		s.unit(baseAddr)[inUnitAddr] = b
	}

	return nil
}

// Load copies an initial image into the storage, starting at offset.
func (s *Storage) Load(offset uint64, image []byte) error {
	return errors.Wrap(s.Write(offset, image), "loading image")
}
