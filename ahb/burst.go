package ahb

// KiloByteBoundary is the address boundary that no incrementing burst may
// cross.
const KiloByteBoundary = 1024

// WrapWindow returns the lowest and highest address of the aligned window of
// a wrapping burst.
func WrapWindow(base uint32, size Size, burst Burst) (low, high uint32) {
	mask := wrapMask(size, burst)

	return base &^ mask, (base &^ mask) + mask
}

func wrapMask(size Size, burst Burst) uint32 {
	return uint32(burst.Beats())*size.Bytes() - 1
}

// NextAddress returns the address of the beat that follows prev in a burst
// that started at base.
func NextAddress(base, prev uint32, size Size, burst Burst) uint32 {
	inc := size.Bytes()

	if !burst.IsWrap() {
		return prev + inc
	}

	mask := wrapMask(size, burst)

	return (base &^ mask) | ((prev + inc) & mask)
}

// BeatAddresses lists the address of every beat of a burst.
func BeatAddresses(base uint32, size Size, burst Burst, length int) []uint32 {
	addrs := make([]uint32, 0, length)
	addr := base

	for i := 0; i < length; i++ {
		if i > 0 {
			addr = NextAddress(base, addr, size, burst)
		}

		addrs = append(addrs, addr)
	}

	return addrs
}
