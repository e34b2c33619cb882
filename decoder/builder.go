package decoder

import "log"

// Builder can build decoders.
type Builder struct {
	regions []Region
}

// MakeBuilder creates a new Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithRegion adds a region that maps [base, base+size) to the selector.
func (b Builder) WithRegion(
	name string,
	base uint32,
	size uint64,
	selector Selector,
) Builder {
	regions := make([]Region, len(b.regions), len(b.regions)+1)
	copy(regions, b.regions)

	b.regions = append(regions, Region{
		Name:     name,
		Base:     base,
		Size:     size,
		Selector: selector,
	})

	return b
}

// Build creates the decoder. It panics if the regions are inconsistent.
func (b Builder) Build() *Decoder {
	d, err := New(b.regions...)
	if err != nil {
		log.Panic(err)
	}

	return d
}
