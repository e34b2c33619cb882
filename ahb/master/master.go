// Package master provides an AHB bus master that performs transactions for
// a client, one beat per clock, with the address phase of the next beat
// overlapping the data phase of the current one.
package master

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/tracing"
)

// ErrQueueFull is returned by Submit when the transaction queue is full.
var ErrQueueFull = errors.New("master transaction queue is full")

// State is the observable state of a master.
type State int

// Master states.
const (
	StateIdle State = iota
	StateAddr
	StateData
	StateWait
	StateError
)

func (s State) String() string {
	return [...]string{"IDLE", "ADDR", "DATA", "WAIT", "ERROR"}[s]
}

type beatRef struct {
	txn   *ahb.Transaction
	index int
}

func (r *beatRef) beat() *ahb.Beat {
	return &r.txn.Beats[r.index]
}

// Comp is a bus master.
type Comp struct {
	*sim.ComponentBase

	queue sim.Buffer
	cycle uint64

	addr       *beatRef
	continuing bool
	rebuilt    bool

	data         *beatRef
	waiting      bool
	errorPending bool
}

// Submit validates a transfer request and queues it. The returned handle
// reports the progress and result of the transaction.
func (c *Comp) Submit(req ahb.TransferRequest) (*ahb.Transaction, error) {
	txn, err := ahb.NewTransaction(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", c.Name())
	}

	if !c.queue.CanPush() {
		return nil, errors.Wrapf(ErrQueueFull, "%s", c.Name())
	}

	c.queue.Push(txn)
	tracing.StartTask(txn.ID, "", c, "req_out", direction(req), txn)

	c.loadNext()

	return txn, nil
}

func direction(req ahb.TransferRequest) string {
	if req.Write {
		return "write"
	}

	return "read"
}

// State returns the current state.
func (c *Comp) State() State {
	switch {
	case c.errorPending:
		return StateError
	case c.data != nil && c.waiting:
		return StateWait
	case c.data != nil:
		return StateData
	case c.addr != nil:
		return StateAddr
	default:
		return StateIdle
	}
}

// Idle tells if the master has nothing in flight and nothing queued.
func (c *Comp) Idle() bool {
	return c.addr == nil && c.data == nil && c.queue.Size() == 0
}

// NumQueued returns the number of transactions waiting to start.
func (c *Comp) NumQueued() int {
	return c.queue.Size()
}

// Cycle returns the number of clocks the master has seen.
func (c *Comp) Cycle() uint64 {
	return c.cycle
}

// Outputs returns the signals driven by the master in the current cycle.
func (c *Comp) Outputs() ahb.MasterSignals {
	var s ahb.MasterSignals

	s.BusReq = c.addr != nil || c.queue.Size() > 0

	if c.addr != nil {
		b := c.addr.beat()
		req := c.addr.txn.Req

		s.Trans = ahb.TransNonSeq
		if c.continuing {
			s.Trans = ahb.TransSeq
		}

		s.Addr = b.Addr
		s.Write = req.Write
		s.Size = req.Size
		s.Burst = req.Burst

		if c.rebuilt {
			s.Burst = ahb.BurstIncr
		}
	}

	if c.data != nil && c.data.txn.Req.Write {
		b := c.data.beat()
		s.WData = ahb.PlaceData(b.Addr, c.data.txn.Req.Size, b.WData)
		s.Strobe = b.Strobe
	}

	return s
}

// Step advances the master by one clock. rsp is the bus response of the
// current cycle and granted tells if the master owns the address bus.
func (c *Comp) Step(rsp ahb.Response, granted bool) {
	addrDriven := c.addr != nil

	c.stepDataPhase(rsp)

	if addrDriven {
		c.stepAddressPhase(rsp, granted)
	}

	c.loadNext()
	c.cycle++
}

func (c *Comp) stepDataPhase(rsp ahb.Response) {
	if c.data == nil {
		return
	}

	switch {
	case rsp.Resp == ahb.RespError && !rsp.Ready:
		c.startError()
	case rsp.Resp == ahb.RespError:
		c.failDataPhase()
	case !rsp.Ready:
		c.waiting = true
		tracing.AddTaskStep(c.data.txn.ID, c, "wait")
	default:
		c.completeDataPhase(rsp.RData)
	}
}

// startError handles the first cycle of an ERROR response. The next address
// of the same burst is withdrawn so that IDLE is driven instead.
func (c *Comp) startError() {
	c.errorPending = true
	c.waiting = false

	if c.addr != nil && c.addr.txn == c.data.txn {
		c.cancelAddress()
	}
}

func (c *Comp) cancelAddress() {
	c.addr = nil
	c.continuing = false
	c.rebuilt = false
}

func (c *Comp) failDataPhase() {
	ref := c.data
	c.data = nil
	c.waiting = false
	c.errorPending = false

	if c.addr != nil && c.addr.txn == ref.txn {
		c.cancelAddress()
	}

	tracing.AddTaskStep(ref.txn.ID, c, "error")
	tracing.EndTask(ref.txn.ID, c)
	ref.txn.FailBeat(ref.index, c.cycle)
}

func (c *Comp) completeDataPhase(word uint32) {
	ref := c.data
	c.data = nil
	c.waiting = false

	req := ref.txn.Req
	rdata := uint32(0)

	if !req.Write {
		rdata = ahb.ExtractData(ref.beat().Addr, req.Size, word)
	}

	tracing.AddTaskStep(ref.txn.ID, c, "beat_ok")

	if ref.index == len(ref.txn.Beats)-1 {
		tracing.EndTask(ref.txn.ID, c)
	}

	ref.txn.CompleteBeat(ref.index, rdata, c.cycle)
}

func (c *Comp) stepAddressPhase(rsp ahb.Response, granted bool) {
	if c.addr == nil {
		return
	}

	if !granted {
		if c.continuing {
			c.continuing = false
			c.rebuilt = true
		}

		return
	}

	if !rsp.Ready {
		return
	}

	accepted := c.addr
	accepted.txn.AcceptAddress(accepted.index, c.cycle)
	c.data = accepted
	c.waiting = false

	c.advanceAddress(accepted)
}

func (c *Comp) advanceAddress(prev *beatRef) {
	txn := prev.txn
	next := prev.index + 1

	if next >= len(txn.Beats) {
		c.cancelAddress()
		return
	}

	c.addr = &beatRef{txn: txn, index: next}
	c.continuing = true

	inc := txn.Req.Size.Bytes()
	if c.rebuilt && txn.Beats[next].Addr != txn.Beats[prev.index].Addr+inc {
		// An INCR burst cannot wrap; restart it at the wrap point.
		c.continuing = false
	}
}

func (c *Comp) loadNext() {
	if c.addr != nil || c.errorPending {
		return
	}

	item := c.queue.Pop()
	if item == nil {
		return
	}

	txn := item.(*ahb.Transaction)
	txn.Activate()
	tracing.AddTaskStep(txn.ID, c, "issue")

	c.addr = &beatRef{txn: txn, index: 0}
	c.continuing = false
	c.rebuilt = false
}
