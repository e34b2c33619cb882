// Package apb defines the signals of the peripheral bus that sits behind the
// bridge. A transfer takes a SETUP cycle followed by one or more ACCESS
// cycles, and there is no pipelining.
package apb

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSlave marks an access that a completer answered with PSLVERR.
var ErrSlave = errors.New("peripheral slave error")

// SlaveFault is the error behind a PSLVERR answer. It matches ErrSlave and
// unwraps to the reason.
type SlaveFault struct {
	Cause error
}

// NewSlaveFault wraps the reason of a PSLVERR answer.
func NewSlaveFault(cause error) error {
	return errors.WithStack(&SlaveFault{Cause: cause})
}

func (e *SlaveFault) Error() string {
	return ErrSlave.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the reason of the fault.
func (e *SlaveFault) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrSlave.
func (e *SlaveFault) Is(target error) bool {
	return target == ErrSlave
}

// Phase is the phase of a transfer as seen on the bus.
type Phase int

// Phases of an APB transfer.
const (
	PhaseIdle Phase = iota
	PhaseSetup
	PhaseAccess
)

func (p Phase) String() string {
	return [...]string{"IDLE", "SETUP", "ACCESS"}[p]
}

// Request holds the signals driven by the requester. Sel is the combined
// PSEL before decoding; the interconnect turns it into one PSELx per
// completer.
type Request struct {
	Sel    bool
	Addr   uint32
	Write  bool
	Enable bool
	WData  uint32
	Strobe uint8
}

// Phase returns the phase that the request signals.
func (r Request) Phase() Phase {
	switch {
	case !r.Sel:
		return PhaseIdle
	case !r.Enable:
		return PhaseSetup
	default:
		return PhaseAccess
	}
}

func (r Request) String() string {
	dir := "R"
	if r.Write {
		dir = "W"
	}

	return fmt.Sprintf("%s 0x%08x %s pwdata=0x%08x pstrb=%04b",
		r.Phase(), r.Addr, dir, r.WData, r.Strobe)
}

// Response holds the signals driven back by the completer. They are only
// meaningful in the ACCESS phase.
type Response struct {
	Ready  bool
	RData  uint32
	SlvErr bool
}

func (r Response) String() string {
	return fmt.Sprintf("pready=%t pslverr=%t prdata=0x%08x",
		r.Ready, r.SlvErr, r.RData)
}

// A Target is a completer on the peripheral bus.
type Target interface {
	// Response returns PREADY, PRDATA and PSLVERR for the request of the
	// current cycle. It depends on registers and on req only.
	Response(req Request) Response

	// Step advances the completer by one clock.
	Step(req Request)
}
