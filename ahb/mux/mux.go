// Package mux routes the response of the target that owns the current data
// phase back to the masters.
package mux

import (
	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/decoder"
)

// Mux holds the registered data-phase selector. When the selector is
// decoder.None the mux acts as the default slave and answers with the
// two-cycle ERROR response itself.
type Mux struct {
	sel        decoder.Selector
	active     bool
	errorFirst bool
}

// New creates a mux with an idle data phase.
func New() *Mux {
	return &Mux{sel: decoder.None}
}

// Selected returns the selector of the current data phase, and whether
// there is one.
func (m *Mux) Selected() (decoder.Selector, bool) {
	return m.sel, m.active
}

// Select returns the upstream response given the responses of every
// target, indexed by selector.
func (m *Mux) Select(responses []ahb.Response) ahb.Response {
	if !m.active {
		return ahb.OkayResponse
	}

	if m.sel == decoder.None {
		return ahb.Response{Ready: !m.errorFirst, Resp: ahb.RespError}
	}

	return responses[m.sel]
}

// Step registers the selector of the address phase when hready is high.
func (m *Mux) Step(addrSel decoder.Selector, trans ahb.Trans, hready bool) {
	if !hready {
		if m.active && m.sel == decoder.None {
			m.errorFirst = false
		}

		return
	}

	m.active = trans.Active()
	m.sel = decoder.None
	m.errorFirst = false

	if m.active {
		m.sel = addrSel
		m.errorFirst = addrSel == decoder.None
	}
}
