package ahb

import "github.com/pkg/errors"

// The error taxonomy of the bus. Decode and target errors both reach the
// master as an ERROR response, which it reports as ErrResponse.
var (
	// ErrProtocol marks a transfer request that the bus cannot represent.
	// It is returned before any bus activity is generated.
	ErrProtocol = errors.New("protocol violation")

	// ErrDecode marks an address that no target claims.
	ErrDecode = errors.New("address decodes to no target")

	// ErrTarget marks a fault reported by a target, such as an access
	// outside its window or a write to a read-only target.
	ErrTarget = errors.New("target fault")

	// ErrResponse is the status error of a transaction that received an
	// ERROR response.
	ErrResponse = errors.New("bus returned an ERROR response")
)

// TargetFault is the error a target reports for a rejected transfer. It
// matches ErrTarget and unwraps to the reason.
type TargetFault struct {
	Cause error
}

// NewTargetFault wraps the reason of a rejected transfer.
func NewTargetFault(cause error) error {
	return errors.WithStack(&TargetFault{Cause: cause})
}

func (e *TargetFault) Error() string {
	return ErrTarget.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the reason of the fault.
func (e *TargetFault) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrTarget.
func (e *TargetFault) Is(target error) bool {
	return target == ErrTarget
}
