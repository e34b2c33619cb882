package fabric

import (
	"log"

	"github.com/sarchlab/amba/sim"
)

// CycleLogger prints one line per bus cycle.
type CycleLogger struct {
	sim.LogHookBase
}

// NewCycleLogger creates a CycleLogger that writes to the logger.
func NewCycleLogger(logger *log.Logger) *CycleLogger {
	h := new(CycleLogger)
	h.Logger = logger

	return h
}

// Func prints the signals of the cycle.
func (h *CycleLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosCycle {
		return
	}

	rec, ok := ctx.Item.(CycleRecord)
	if !ok {
		return
	}

	h.Printf("%6d grant=%2d data=%2d | %s | %s",
		rec.Cycle, rec.Grant, rec.DataOwner, rec.Request, rec.Response)
}
