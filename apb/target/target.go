// Package target provides a register block on the peripheral bus, backed by
// a storage window.
package target

import (
	"log"

	"github.com/sarchlab/amba/apb"
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/storage"
	"github.com/sarchlab/amba/tracing"
)

// HookPosFault marks an access answered with PSLVERR. The hook item is the
// error.
var HookPosFault = &sim.HookPos{Name: "APB Target Fault"}

// Comp is an APB completer. Every access moves one whole word; the strobe
// selects the written lanes.
type Comp struct {
	*sim.ComponentBase

	window     *storage.Window
	waitCycles int

	taskID   string
	waitLeft int

	numAccesses int
	numFaults   int
}

// Window returns the address window of the register block.
func (c *Comp) Window() *storage.Window {
	return c.window
}

// NumAccesses returns the number of accesses completed without error.
func (c *Comp) NumAccesses() int {
	return c.numAccesses
}

// NumFaults returns the number of accesses answered with PSLVERR.
func (c *Comp) NumFaults() int {
	return c.numFaults
}

// Busy tells if a transfer has started and not completed.
func (c *Comp) Busy() bool {
	return c.taskID != ""
}

// Response returns the completer signals for the request of this cycle.
func (c *Comp) Response(req apb.Request) apb.Response {
	if req.Phase() != apb.PhaseAccess || c.waitLeft > 0 {
		return apb.Response{}
	}

	if c.check(req) != nil {
		return apb.Response{Ready: true, SlvErr: true}
	}

	rsp := apb.Response{Ready: true}

	if !req.Write {
		word, err := c.window.ReadWord(req.Addr)
		if err != nil {
			log.Panicf("%s: checked read at 0x%08x failed: %v",
				c.Name(), req.Addr, err)
		}

		rsp.RData = word
	}

	return rsp
}

func (c *Comp) check(req apb.Request) error {
	addr := req.Addr &^ (storage.WordBytes - 1)

	err := c.window.Check(addr, req.Write, storage.WordBytes)
	if err != nil {
		return apb.NewSlaveFault(err)
	}

	return nil
}

// Step advances the completer by one clock.
func (c *Comp) Step(req apb.Request) {
	switch req.Phase() {
	case apb.PhaseSetup:
		c.startTransfer(req)
	case apb.PhaseAccess:
		c.stepAccess(req)
	}
}

func (c *Comp) startTransfer(req apb.Request) {
	c.waitLeft = c.waitCycles
	c.taskID = sim.GetIDGenerator().Generate()

	what := "read"
	if req.Write {
		what = "write"
	}

	tracing.StartTask(c.taskID, "", c, "req_in", what, req)
}

func (c *Comp) stepAccess(req apb.Request) {
	if c.waitLeft > 0 {
		c.waitLeft--
		c.addStep("wait")

		return
	}

	if err := c.check(req); err != nil {
		c.numFaults++
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosFault,
			Item:   err,
		})
		c.finish("error")

		return
	}

	if req.Write {
		addr := req.Addr &^ (storage.WordBytes - 1)

		_, err := c.window.Access(addr, true, storage.WordBytes,
			req.WData, req.Strobe)
		if err != nil {
			log.Panicf("%s: checked write at 0x%08x failed: %v",
				c.Name(), addr, err)
		}
	}

	c.numAccesses++
	c.finish("okay")
}

func (c *Comp) addStep(what string) {
	if c.taskID != "" {
		tracing.AddTaskStep(c.taskID, c, what)
	}
}

func (c *Comp) finish(result string) {
	if c.taskID != "" {
		tracing.AddTaskStep(c.taskID, c, result)
		tracing.EndTask(c.taskID, c)
	}

	c.taskID = ""
}
