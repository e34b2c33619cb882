package ahb

// LaneOffset returns the first byte lane that an address uses.
func LaneOffset(addr uint32) uint32 {
	return addr % DataBusBytes
}

// ActiveLanes returns the strobe of the lanes that a transfer of the given
// size at addr occupies.
func ActiveLanes(addr uint32, size Size) uint8 {
	return uint8((uint32(1)<<size.Bytes() - 1) << LaneOffset(addr))
}

// PlaceData shifts a right-aligned value into its byte lanes.
func PlaceData(addr uint32, size Size, value uint32) uint32 {
	return (value & sizeMask(size)) << (8 * LaneOffset(addr))
}

// ExtractData returns the right-aligned value of a transfer from the bus
// word.
func ExtractData(addr uint32, size Size, word uint32) uint32 {
	return (word >> (8 * LaneOffset(addr))) & sizeMask(size)
}

// AlignWord rounds an address down to its bus word.
func AlignWord(addr uint32) uint32 {
	return addr &^ (DataBusBytes - 1)
}

func sizeMask(size Size) uint32 {
	if size.Bytes() >= 4 {
		return 0xFFFF_FFFF
	}

	return 1<<(8*size.Bytes()) - 1
}
