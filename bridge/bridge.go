// Package bridge provides an AHB target that forwards each transfer to a
// peripheral bus as a SETUP cycle followed by ACCESS cycles.
package bridge

import (
	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/apb"
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/tracing"
)

// State is the state of the bridge.
type State int

// Bridge states. StateError is the second cycle of the AHB error response
// that follows a PSLVERR.
const (
	StateIdle State = iota
	StateSetup
	StateAccess
	StateError
)

func (s State) String() string {
	return [...]string{"IDLE", "SETUP", "ACCESS", "ERROR"}[s]
}

// HookPosStateChange marks a state transition. The hook item is the new
// state and the detail is the old one.
var HookPosStateChange = &sim.HookPos{Name: "Bridge State Change"}

// Comp is an AHB to APB bridge. It serves one transfer at a time.
type Comp struct {
	*sim.ComponentBase

	downstream apb.Target

	state  State
	addr   uint32
	write  bool
	wdata  uint32
	strobe uint8
	taskID string

	numTransfers int
	numErrors    int
}

// State returns the current state.
func (c *Comp) State() State {
	return c.state
}

// NumTransfers returns how many transfers completed without error.
func (c *Comp) NumTransfers() int {
	return c.numTransfers
}

// NumErrors returns how many transfers were answered with PSLVERR.
func (c *Comp) NumErrors() int {
	return c.numErrors
}

// APBRequest returns the signals that the bridge drives downstream in the
// current cycle.
func (c *Comp) APBRequest() apb.Request {
	switch c.state {
	case StateSetup:
		return apb.Request{Sel: true, Addr: c.addr, Write: c.write}
	case StateAccess:
		return apb.Request{
			Sel:    true,
			Enable: true,
			Addr:   c.addr,
			Write:  c.write,
			WData:  c.wdata,
			Strobe: c.strobe,
		}
	default:
		return apb.Request{}
	}
}

// Response returns the AHB data-phase signals. In ACCESS it follows PREADY
// of the completer.
func (c *Comp) Response() ahb.Response {
	switch c.state {
	case StateSetup:
		return ahb.Response{Ready: false, Resp: ahb.RespOkay}
	case StateAccess:
		rsp := c.downstream.Response(c.APBRequest())

		switch {
		case !rsp.Ready:
			return ahb.Response{Ready: false, Resp: ahb.RespOkay}
		case rsp.SlvErr:
			return ahb.Response{Ready: false, Resp: ahb.RespError}
		case c.write:
			return ahb.OkayResponse
		default:
			return ahb.Response{Ready: true, Resp: ahb.RespOkay, RData: rsp.RData}
		}
	case StateError:
		return ahb.Response{Ready: true, Resp: ahb.RespError}
	default:
		return ahb.OkayResponse
	}
}

// Step advances the bridge and the peripheral bus by one clock.
func (c *Comp) Step(req ahb.Request, sel bool, hready bool) {
	own := c.Response()

	c.downstream.Step(c.APBRequest())

	switch c.state {
	case StateSetup:
		c.captureData(req)
		c.setState(StateAccess)
	case StateAccess:
		c.stepAccess(own)
	case StateError:
		c.setState(StateIdle)
	}

	if c.state == StateIdle && sel && hready && req.Trans.Active() {
		c.captureAddress(req)
	}
}

func (c *Comp) stepAccess(own ahb.Response) {
	switch {
	case own.Resp == ahb.RespError:
		c.numErrors++
		c.finish("error")
		c.setState(StateError)
	case own.Ready:
		c.numTransfers++
		c.finish("okay")
		c.setState(StateIdle)
	default:
		tracing.AddTaskStep(c.taskID, c, "wait")
	}
}

func (c *Comp) captureAddress(req ahb.Request) {
	c.addr = req.Addr
	c.write = req.Write
	c.wdata = 0
	c.strobe = 0
	c.taskID = sim.GetIDGenerator().Generate()

	what := "read"
	if req.Write {
		what = "write"
	}

	tracing.StartTask(c.taskID, "", c, "req_in", what, req)
	c.setState(StateSetup)
}

// captureData latches HWDATA, which the master drives in the cycle after
// the address phase.
func (c *Comp) captureData(req ahb.Request) {
	if !c.write {
		return
	}

	c.wdata = req.WData
	c.strobe = req.Strobe
}

func (c *Comp) finish(result string) {
	tracing.AddTaskStep(c.taskID, c, result)
	tracing.EndTask(c.taskID, c)
	c.taskID = ""
}

func (c *Comp) setState(s State) {
	if s == c.state {
		return
	}

	old := c.state
	c.state = s

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosStateChange,
		Item:   s,
		Detail: old,
	})
}
