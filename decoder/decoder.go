// Package decoder maps bus addresses to target selectors.
//
// A Decoder holds a set of non-overlapping address regions. Decoding is a
// pure function of the address: every 32-bit address yields either the
// selector of the one region that contains it or None.
package decoder

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// A Selector identifies a target behind a decoder. Selectors index the
// target list of an interconnect.
type Selector int

// None is returned for addresses that no region covers.
const None Selector = -1

// AddressSpaceSize is the number of addresses a 32-bit bus can represent.
const AddressSpaceSize uint64 = 1 << 32

var (
	// ErrOverlap is returned when two regions share an address.
	ErrOverlap = errors.New("regions overlap")

	// ErrEmpty is returned for a region of size 0.
	ErrEmpty = errors.New("region is empty")

	// ErrOutOfRange is returned when a region extends beyond the 32-bit
	// address space.
	ErrOutOfRange = errors.New("region exceeds the address space")

	// ErrNegativeSelector is returned when a region uses a negative
	// selector.
	ErrNegativeSelector = errors.New("region selector must not be negative")
)

// A Region is a contiguous address window that belongs to one selector.
type Region struct {
	Name     string
	Base     uint32
	Size     uint64
	Selector Selector
}

// Last returns the highest address in the region.
func (r Region) Last() uint32 {
	return uint32(uint64(r.Base) + r.Size - 1)
}

// Contains tells if the address falls in the region.
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr-r.Base) < r.Size
}

func (r Region) String() string {
	return fmt.Sprintf("%s[0x%08x, 0x%08x] -> %d",
		r.Name, r.Base, r.Last(), r.Selector)
}

// Decoder finds the region that an address belongs to.
type Decoder struct {
	regions []Region
}

// New creates a decoder from the given regions.
func New(regions ...Region) (*Decoder, error) {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)

	for _, r := range sorted {
		if err := validateRegion(r); err != nil {
			return nil, err
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Base < sorted[j].Base
	})

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		curr := sorted[i]

		if uint64(prev.Base)+prev.Size > uint64(curr.Base) {
			return nil, errors.Wrapf(ErrOverlap, "%s and %s", prev, curr)
		}
	}

	return &Decoder{regions: sorted}, nil
}

func validateRegion(r Region) error {
	if r.Size == 0 {
		return errors.Wrapf(ErrEmpty, "region %s", r.Name)
	}

	if uint64(r.Base)+r.Size > AddressSpaceSize {
		return errors.Wrapf(ErrOutOfRange, "region %s", r.Name)
	}

	if r.Selector < 0 {
		return errors.Wrapf(ErrNegativeSelector, "region %s", r.Name)
	}

	return nil
}

// Decode returns the selector of the region that contains the address, or
// None.
func (d *Decoder) Decode(addr uint32) Selector {
	r, ok := d.Lookup(addr)
	if !ok {
		return None
	}

	return r.Selector
}

// Lookup returns the region that contains the address.
func (d *Decoder) Lookup(addr uint32) (Region, bool) {
	// First region whose base is above addr; the candidate sits just before.
	i := sort.Search(len(d.regions), func(i int) bool {
		return d.regions[i].Base > addr
	})

	if i == 0 {
		return Region{}, false
	}

	r := d.regions[i-1]
	if !r.Contains(addr) {
		return Region{}, false
	}

	return r, true
}

// Regions returns the regions sorted by base address.
func (d *Decoder) Regions() []Region {
	regions := make([]Region, len(d.regions))
	copy(regions, d.regions)

	return regions
}

// NumSelectors returns one more than the largest selector in use.
func (d *Decoder) NumSelectors() int {
	n := 0
	for _, r := range d.regions {
		if int(r.Selector) >= n {
			n = int(r.Selector) + 1
		}
	}

	return n
}
