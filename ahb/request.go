package ahb

import (
	"github.com/pkg/errors"
)

// TransferRequest is what a client asks a master to perform.
//
// WData holds one right-aligned value per beat; the master places it onto
// the byte lanes. Strobes, if given, holds one lane strobe per beat and must
// stay within the lanes of the beat.
type TransferRequest struct {
	Addr    uint32
	Write   bool
	Size    Size
	Burst   Burst
	Length  int
	WData   []uint32
	Strobes []uint8
}

// Single creates a request of one beat.
func Single(addr uint32, write bool, size Size, wdata ...uint32) TransferRequest {
	return TransferRequest{
		Addr:   addr,
		Write:  write,
		Size:   size,
		Burst:  BurstSingle,
		Length: 1,
		WData:  wdata,
	}
}

// Validate checks that the request can be issued on the bus. All returned
// errors wrap ErrProtocol.
func (r TransferRequest) Validate() error {
	if !r.Burst.IsValid() {
		return errors.Wrapf(ErrProtocol, "unknown burst %d", uint8(r.Burst))
	}

	if r.Size > SizeWord {
		return errors.Wrapf(ErrProtocol,
			"HSIZE %d exceeds the %d-byte data bus", uint8(r.Size), DataBusBytes)
	}

	if r.Addr%r.Size.Bytes() != 0 {
		return errors.Wrapf(ErrProtocol,
			"address 0x%08x is not aligned to size %s", r.Addr, r.Size)
	}

	if r.Length <= 0 {
		return errors.Wrapf(ErrProtocol, "burst length %d", r.Length)
	}

	if n := r.Burst.Beats(); n != 0 && n != r.Length {
		return errors.Wrapf(ErrProtocol,
			"%s burst requires %d beats, got %d", r.Burst, n, r.Length)
	}

	if err := r.validateData(); err != nil {
		return err
	}

	return r.validateBoundary()
}

func (r TransferRequest) validateData() error {
	if !r.Write {
		if len(r.WData) != 0 || len(r.Strobes) != 0 {
			return errors.Wrap(ErrProtocol, "read request carries write data")
		}

		return nil
	}

	if len(r.WData) != r.Length {
		return errors.Wrapf(ErrProtocol,
			"%d write data values for %d beats", len(r.WData), r.Length)
	}

	if r.Strobes == nil {
		return nil
	}

	if len(r.Strobes) != r.Length {
		return errors.Wrapf(ErrProtocol,
			"%d strobes for %d beats", len(r.Strobes), r.Length)
	}

	addrs := BeatAddresses(r.Addr, r.Size, r.Burst, r.Length)
	for i, strobe := range r.Strobes {
		lanes := ActiveLanes(addrs[i], r.Size)
		if strobe&^lanes != 0 {
			return errors.Wrapf(ErrProtocol,
				"beat %d strobe %04b outside lanes %04b", i, strobe, lanes)
		}
	}

	return nil
}

func (r TransferRequest) validateBoundary() error {
	if r.Burst.IsWrap() {
		return nil
	}

	last := uint64(r.Addr) + uint64(r.Length-1)*uint64(r.Size.Bytes())
	if uint64(r.Addr)/KiloByteBoundary != last/KiloByteBoundary {
		return errors.Wrapf(ErrProtocol,
			"burst from 0x%08x to 0x%x crosses a 1KB boundary",
			r.Addr, last)
	}

	return nil
}
