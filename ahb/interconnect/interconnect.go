// Package interconnect joins an address decoder, a response mux and a set of
// targets into a single AHB target.
package interconnect

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/ahb/mux"
	"github.com/sarchlab/amba/decoder"
	"github.com/sarchlab/amba/sim"
)

// HookPosDecodeError marks an address phase that no target claims. The hook
// item is an error that wraps ahb.ErrDecode.
var HookPosDecodeError = &sim.HookPos{Name: "Decode Error"}

// Comp routes every address phase to the target that claims it and every
// data phase response back to the masters.
type Comp struct {
	*sim.ComponentBase

	decoder   *decoder.Decoder
	targets   []ahb.Target
	mux       *mux.Mux
	responses []ahb.Response

	numDecodeErrors int
}

// Decoder returns the address decoder.
func (c *Comp) Decoder() *decoder.Decoder {
	return c.decoder
}

// Target returns the target of a selector.
func (c *Comp) Target(sel decoder.Selector) ahb.Target {
	return c.targets[sel]
}

// NumTargets returns the number of targets.
func (c *Comp) NumTargets() int {
	return len(c.targets)
}

// NumDecodeErrors returns how many address phases decoded to no target.
func (c *Comp) NumDecodeErrors() int {
	return c.numDecodeErrors
}

// Response returns the response of the target that owns the data phase.
func (c *Comp) Response() ahb.Response {
	for i, t := range c.targets {
		c.responses[i] = t.Response()
	}

	return c.mux.Select(c.responses)
}

// Step advances every target and the mux by one clock.
func (c *Comp) Step(req ahb.Request, sel bool, hready bool) {
	trans := req.Trans
	if !sel {
		trans = ahb.TransIdle
	}

	addrSel := decoder.None
	if trans.Active() {
		addrSel = c.decoder.Decode(req.Addr)

		if addrSel == decoder.None && hready {
			c.reportDecodeError(req)
		}
	}

	for i, t := range c.targets {
		t.Step(req, trans.Active() && decoder.Selector(i) == addrSel, hready)
	}

	c.mux.Step(addrSel, trans, hready)
}

func (c *Comp) reportDecodeError(req ahb.Request) {
	c.numDecodeErrors++

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosDecodeError,
		Item:   errors.Wrapf(ahb.ErrDecode, "%s: 0x%08x", c.Name(), req.Addr),
		Detail: req,
	})
}
