// Package fabric clocks masters, an arbiter and an interconnect together
// into one shared AHB bus.
package fabric

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/ahb/arbiter"
	"github.com/sarchlab/amba/ahb/master"
	"github.com/sarchlab/amba/sim"
)

// ErrCycleLimit is returned by Run when the bus is still busy after the
// given number of cycles.
var ErrCycleLimit = errors.New("bus did not become idle within the cycle limit")

// HookPosCycle marks the end of a clock. The hook item is a CycleRecord.
var HookPosCycle = &sim.HookPos{Name: "Bus Cycle"}

// CycleRecord describes what happened on the bus in one cycle.
type CycleRecord struct {
	Cycle     uint64
	Grant     int
	DataOwner int
	Request   ahb.Request
	Response  ahb.Response
}

// Bus is a shared AHB bus. Each tick is one bus clock.
type Bus struct {
	*sim.TickingComponent

	masters []*master.Comp
	arbiter *arbiter.Arbiter
	target  ahb.Target
	freq    sim.Freq

	dataOwner int
	cycle     uint64
}

// Masters returns the masters attached to the bus, in arbitration order.
func (b *Bus) Masters() []*master.Comp {
	return b.masters
}

// Master returns master i.
func (b *Bus) Master(i int) *master.Comp {
	return b.masters[i]
}

// Arbiter returns the arbiter, or nil if the bus has a single master.
func (b *Bus) Arbiter() *arbiter.Arbiter {
	return b.arbiter
}

// Target returns the component that serves every address phase.
func (b *Bus) Target() ahb.Target {
	return b.target
}

// Cycle returns the number of clocks run so far.
func (b *Bus) Cycle() uint64 {
	return b.cycle
}

// DataOwner returns the master that owns the current data phase, or
// arbiter.None.
func (b *Bus) DataOwner() int {
	return b.dataOwner
}

// Grant returns the master that owns the address bus in the current cycle.
func (b *Bus) Grant() int {
	if b.arbiter == nil {
		return 0
	}

	return b.arbiter.Grant()
}

// Idle tells if no master has work in flight or queued.
func (b *Bus) Idle() bool {
	for _, m := range b.masters {
		if !m.Idle() {
			return false
		}
	}

	return true
}

// Submit queues a transfer on master i and wakes the bus up.
func (b *Bus) Submit(
	i int,
	req ahb.TransferRequest,
) (*ahb.Transaction, error) {
	txn, err := b.masters[i].Submit(req)
	if err != nil {
		return nil, err
	}

	if b.Engine != nil {
		b.TickLater()
	}

	return txn, nil
}

// Tick runs one clock if there is work to do.
func (b *Bus) Tick() bool {
	if b.Idle() {
		return false
	}

	b.Step()

	return true
}

// Step runs one bus clock.
func (b *Bus) Step() {
	grant := b.Grant()

	outs := make([]ahb.MasterSignals, len(b.masters))
	busReqs := make([]bool, len(b.masters))

	for i, m := range b.masters {
		outs[i] = m.Outputs()
		busReqs[i] = outs[i].BusReq
	}

	req := b.busRequest(outs, grant)
	rsp := b.target.Response()

	for i, m := range b.masters {
		m.Step(rsp, i == grant)
	}

	if b.arbiter != nil {
		b.arbiter.Step(busReqs, rsp.Ready)
	}

	b.target.Step(req, true, rsp.Ready)

	b.recordCycle(grant, req, rsp)

	if rsp.Ready {
		b.dataOwner = arbiter.None
		if grant != arbiter.None && req.Trans.Active() {
			b.dataOwner = grant
		}
	}

	b.cycle++
}

// busRequest merges the address phase of the grantee with the write data
// of the data-phase owner.
func (b *Bus) busRequest(outs []ahb.MasterSignals, grant int) ahb.Request {
	var req ahb.Request

	if grant != arbiter.None {
		req = outs[grant].Request
	}

	req.WData = 0
	req.Strobe = 0

	if b.dataOwner != arbiter.None {
		req.WData = outs[b.dataOwner].WData
		req.Strobe = outs[b.dataOwner].Strobe
	}

	return req
}

func (b *Bus) recordCycle(grant int, req ahb.Request, rsp ahb.Response) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(sim.HookCtx{
		Domain: b,
		Pos:    HookPosCycle,
		Item: CycleRecord{
			Cycle:     b.cycle,
			Grant:     grant,
			DataOwner: b.dataOwner,
			Request:   req,
			Response:  rsp,
		},
	})
}

// Run steps the bus until every master is idle. It fails with
// ErrCycleLimit if that takes more than maxCycles clocks.
func (b *Bus) Run(maxCycles uint64) error {
	start := b.cycle

	for !b.Idle() {
		if b.cycle-start >= maxCycles {
			return errors.Wrapf(ErrCycleLimit, "%s: %d cycles", b.Name(), maxCycles)
		}

		b.Step()
	}

	return nil
}

// Clock returns a time teller that converts the cycle count into time at
// the bus frequency. Tracers use it when the bus runs without an engine.
func (b *Bus) Clock() sim.TimeTeller {
	return cycleClock{bus: b}
}

type cycleClock struct {
	bus *Bus
}

func (c cycleClock) CurrentTime() sim.VTimeInSec {
	return sim.VTimeInSec(c.bus.cycle) * c.bus.freq.Period()
}
