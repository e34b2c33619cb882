// Package ahb defines the signal set, transfer encodings and transactions of
// a pipelined AHB-class bus.
//
// Every clocked component on the bus follows the same model: its outputs are
// a pure function of its registers, and Step advances the registers exactly
// once per clock edge.
package ahb

import "fmt"

// DataBusBytes is the width of HWDATA and HRDATA in bytes.
const DataBusBytes = 4

// Trans is the HTRANS encoding of a transfer.
type Trans uint8

// HTRANS values.
const (
	TransIdle Trans = iota
	TransBusy
	TransNonSeq
	TransSeq
)

// Active tells if the transfer carries an address phase that a target must
// respond to.
func (t Trans) Active() bool {
	return t == TransNonSeq || t == TransSeq
}

func (t Trans) String() string {
	switch t {
	case TransIdle:
		return "IDLE"
	case TransBusy:
		return "BUSY"
	case TransNonSeq:
		return "NONSEQ"
	case TransSeq:
		return "SEQ"
	}

	return fmt.Sprintf("Trans(%d)", uint8(t))
}

// Burst is the HBURST encoding of a transfer.
type Burst uint8

// HBURST values.
const (
	BurstSingle Burst = iota
	BurstIncr
	BurstWrap4
	BurstIncr4
	BurstWrap8
	BurstIncr8
	BurstWrap16
	BurstIncr16
)

// Beats returns the number of beats of a fixed-length burst. It returns 0
// for undefined-length INCR bursts.
func (b Burst) Beats() int {
	switch b {
	case BurstSingle:
		return 1
	case BurstIncr:
		return 0
	case BurstWrap4, BurstIncr4:
		return 4
	case BurstWrap8, BurstIncr8:
		return 8
	case BurstWrap16, BurstIncr16:
		return 16
	}

	panic(fmt.Sprintf("unknown burst %d", uint8(b)))
}

// IsWrap tells if the burst wraps at its aligned window.
func (b Burst) IsWrap() bool {
	return b == BurstWrap4 || b == BurstWrap8 || b == BurstWrap16
}

// IsValid tells if the value is one of the eight HBURST encodings.
func (b Burst) IsValid() bool {
	return b <= BurstIncr16
}

func (b Burst) String() string {
	names := []string{
		"SINGLE", "INCR", "WRAP4", "INCR4", "WRAP8", "INCR8", "WRAP16", "INCR16",
	}

	if !b.IsValid() {
		return fmt.Sprintf("Burst(%d)", uint8(b))
	}

	return names[b]
}

// ParseBurst converts a burst name such as "WRAP4" to a Burst.
func ParseBurst(s string) (Burst, bool) {
	for b := BurstSingle; b <= BurstIncr16; b++ {
		if b.String() == s {
			return b, true
		}
	}

	return 0, false
}

// Size is the HSIZE encoding of a transfer, the log2 of its byte count.
type Size uint8

// HSIZE values that fit the data bus.
const (
	SizeByte Size = iota
	SizeHalfword
	SizeWord
)

// Bytes returns how many bytes a transfer of this size moves.
func (s Size) Bytes() uint32 {
	return 1 << s
}

func (s Size) String() string {
	return fmt.Sprintf("%dB", s.Bytes())
}

// SizeFromBytes converts a byte count into an HSIZE value.
func SizeFromBytes(n int) (Size, bool) {
	for s := Size(0); s < 8; s++ {
		if int(s.Bytes()) == n {
			return s, true
		}
	}

	return 0, false
}

// Resp is the HRESP encoding of a response.
type Resp uint8

// HRESP values.
const (
	RespOkay Resp = iota
	RespError
)

func (r Resp) String() string {
	if r == RespError {
		return "ERROR"
	}

	return "OKAY"
}

// Request is the set of signals that the active master drives onto the bus
// in one cycle. The address and control fields belong to the address phase;
// WData and Strobe belong to the data phase of the previous transfer.
type Request struct {
	Trans  Trans
	Addr   uint32
	Write  bool
	Size   Size
	Burst  Burst
	WData  uint32
	Strobe uint8
}

func (r Request) String() string {
	dir := "R"
	if r.Write {
		dir = "W"
	}

	return fmt.Sprintf("%s 0x%08x %s %s %s wdata=0x%08x strb=%04b",
		r.Trans, r.Addr, dir, r.Size, r.Burst, r.WData, r.Strobe)
}

// Response is the set of signals that the selected target drives back.
type Response struct {
	Ready bool
	Resp  Resp
	RData uint32
}

// OkayResponse is the response of an idle data phase.
var OkayResponse = Response{Ready: true, Resp: RespOkay}

func (r Response) String() string {
	return fmt.Sprintf("ready=%t %s rdata=0x%08x", r.Ready, r.Resp, r.RData)
}

// MasterSignals is everything a master drives, including the bus request to
// the arbiter.
type MasterSignals struct {
	Request
	BusReq bool
}

// A Target is a slave component on the bus.
type Target interface {
	// Response returns HREADYOUT, HRESP and HRDATA of the current data
	// phase. It depends only on registers.
	Response() Response

	// Step advances the target by one clock. The address phase in req is
	// registered only if sel and hready are both high. HWDATA in req
	// belongs to the data phase that is completing at this edge.
	Step(req Request, sel bool, hready bool)
}
