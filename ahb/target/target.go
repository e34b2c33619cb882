// Package target provides a memory-backed AHB target with configurable wait
// states.
package target

import (
	"log"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/storage"
	"github.com/sarchlab/amba/tracing"
)

// HookPosFault marks an address phase that the target rejects. The hook
// item is the error.
var HookPosFault = &sim.HookPos{Name: "Target Fault"}

type dataPhase struct {
	taskID string
	addr   uint32
	write  bool
	size   ahb.Size
	fault  error
}

// Comp is an AHB target that serves a window of storage.
type Comp struct {
	*sim.ComponentBase

	window     *storage.Window
	waitCycles int

	pending    bool
	phase      dataPhase
	waitLeft   int
	errorFirst bool
	rdata      uint32

	numAccesses int
	numFaults   int
}

// Window returns the address window that the target serves.
func (c *Comp) Window() *storage.Window {
	return c.window
}

// WaitCycles returns the number of wait states of each access.
func (c *Comp) WaitCycles() int {
	return c.waitCycles
}

// NumAccesses returns the number of completed OKAY accesses.
func (c *Comp) NumAccesses() int {
	return c.numAccesses
}

// NumFaults returns the number of accesses answered with ERROR.
func (c *Comp) NumFaults() int {
	return c.numFaults
}

// Busy tells if a data phase is in progress.
func (c *Comp) Busy() bool {
	return c.pending
}

// Access performs a transfer directly on the window. The returned word is
// the whole bus word that contains addr.
func (c *Comp) Access(
	addr uint32,
	write bool,
	size ahb.Size,
	wdata uint32,
	strobe uint8,
) (uint32, error) {
	rdata, err := c.window.Access(addr, write, size.Bytes(), wdata, strobe)
	if err != nil {
		return 0, ahb.NewTargetFault(err)
	}

	return rdata, nil
}

// Response returns the data-phase signals derived from the registers.
func (c *Comp) Response() ahb.Response {
	if !c.pending {
		return ahb.OkayResponse
	}

	if c.phase.fault != nil {
		return ahb.Response{Ready: !c.errorFirst, Resp: ahb.RespError}
	}

	if c.waitLeft > 0 {
		return ahb.Response{Ready: false, Resp: ahb.RespOkay}
	}

	rsp := ahb.Response{Ready: true, Resp: ahb.RespOkay}
	if !c.phase.write {
		rsp.RData = c.rdata
	}

	return rsp
}

// Step advances the target by one clock.
func (c *Comp) Step(req ahb.Request, sel bool, hready bool) {
	if c.pending {
		c.stepDataPhase(req)
	}

	if sel && hready && req.Trans.Active() {
		c.startDataPhase(req)
	}
}

func (c *Comp) stepDataPhase(req ahb.Request) {
	rsp := c.Response()

	switch {
	case c.phase.fault != nil && c.errorFirst:
		c.errorFirst = false
	case c.phase.fault != nil:
		c.numFaults++
		c.finish("error")
	case !rsp.Ready:
		c.waitLeft--
		tracing.AddTaskStep(c.phase.taskID, c, "wait")

		if c.waitLeft == 0 {
			c.latchReadData()
		}
	default:
		if c.phase.write {
			c.commit(req)
		}

		c.numAccesses++
		c.finish("okay")
	}
}

func (c *Comp) commit(req ahb.Request) {
	_, err := c.Access(c.phase.addr, true, c.phase.size, req.WData, req.Strobe)
	if err != nil {
		log.Panicf("%s: write accepted at 0x%08x failed: %v",
			c.Name(), c.phase.addr, err)
	}
}

func (c *Comp) latchReadData() {
	if c.phase.write {
		return
	}

	rdata, err := c.Access(c.phase.addr, false, c.phase.size, 0, 0)
	if err != nil {
		log.Panicf("%s: read accepted at 0x%08x failed: %v",
			c.Name(), c.phase.addr, err)
	}

	c.rdata = rdata
}

func (c *Comp) finish(result string) {
	tracing.AddTaskStep(c.phase.taskID, c, result)
	tracing.EndTask(c.phase.taskID, c)

	c.pending = false
	c.phase = dataPhase{}
	c.rdata = 0
}

func (c *Comp) startDataPhase(req ahb.Request) {
	c.pending = true
	c.phase = dataPhase{
		taskID: sim.GetIDGenerator().Generate(),
		addr:   req.Addr,
		write:  req.Write,
		size:   req.Size,
	}

	what := "read"
	if req.Write {
		what = "write"
	}

	tracing.StartTask(c.phase.taskID, "", c, "req_in", what, req)

	if err := c.window.Check(req.Addr, req.Write, req.Size.Bytes()); err != nil {
		c.phase.fault = ahb.NewTargetFault(err)
		c.errorFirst = true
		c.waitLeft = 0

		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosFault,
			Item:   c.phase.fault,
		})

		return
	}

	c.waitLeft = c.waitCycles
	if c.waitLeft == 0 {
		c.latchReadData()
	}
}
