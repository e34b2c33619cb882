// Package interconnect decodes the peripheral bus address into one select
// line per completer and multiplexes the completer responses back.
package interconnect

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/amba/apb"
	"github.com/sarchlab/amba/decoder"
	"github.com/sarchlab/amba/sim"
)

// HookPosDecodeError marks an ACCESS cycle to an address that no completer
// claims. The hook item is an error that wraps apb.ErrSlave.
var HookPosDecodeError = &sim.HookPos{Name: "APB Decode Error"}

// Comp is a peripheral bus interconnect. It is a completer itself.
type Comp struct {
	*sim.ComponentBase

	decoder *decoder.Decoder
	targets []apb.Target

	numDecodeErrors int
}

// Decoder returns the address decoder.
func (c *Comp) Decoder() *decoder.Decoder {
	return c.decoder
}

// NumDecodeErrors returns how many accesses decoded to no completer.
func (c *Comp) NumDecodeErrors() int {
	return c.numDecodeErrors
}

// Response returns the response of the selected completer. An unmapped
// access completes at once with PSLVERR.
func (c *Comp) Response(req apb.Request) apb.Response {
	if req.Phase() != apb.PhaseAccess {
		return apb.Response{}
	}

	sel := c.decoder.Decode(req.Addr)
	if sel == decoder.None {
		return apb.Response{Ready: true, SlvErr: true}
	}

	return c.targets[sel].Response(req)
}

// Step forwards the request to every completer, with PSEL asserted only for
// the one that claims the address.
func (c *Comp) Step(req apb.Request) {
	sel := decoder.None
	if req.Sel {
		sel = c.decoder.Decode(req.Addr)
	}

	if sel == decoder.None && req.Phase() == apb.PhaseAccess {
		c.reportDecodeError(req)
	}

	for i, t := range c.targets {
		r := req
		r.Sel = req.Sel && decoder.Selector(i) == sel
		t.Step(r)
	}
}

func (c *Comp) reportDecodeError(req apb.Request) {
	c.numDecodeErrors++

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosDecodeError,
		Item: errors.Wrapf(apb.ErrSlave, "%s: no completer at 0x%08x",
			c.Name(), req.Addr),
		Detail: req,
	})
}
