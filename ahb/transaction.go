package ahb

import (
	"log"

	"github.com/pkg/errors"

	"github.com/sarchlab/amba/sim"
)

// Status is the progress of a transaction.
type Status int

// Transaction statuses.
const (
	StatusPending Status = iota
	StatusActive
	StatusOK
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusActive:
		return "ACTIVE"
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	}

	return "UNKNOWN"
}

// A Beat is one address and data exchange of a transaction.
type Beat struct {
	Index  int
	Addr   uint32
	WData  uint32
	Strobe uint8
	RData  uint32
	Resp   Resp

	AddrAccepted bool
	AddrCycle    uint64
	Completed    bool
	DataCycle    uint64
}

// A Transaction is a burst that a master performs for its client. The
// master that accepted it is the only one that mutates it.
type Transaction struct {
	ID    string
	Req   TransferRequest
	Beats []Beat

	status     Status
	failedBeat int
	endCycle   uint64
	callbacks  []func(*Transaction)
}

// NewTransaction validates the request and expands it into beats.
func NewTransaction(req TransferRequest) (*Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:         sim.GetIDGenerator().Generate(),
		Req:        req,
		failedBeat: -1,
	}

	addrs := BeatAddresses(req.Addr, req.Size, req.Burst, req.Length)
	t.Beats = make([]Beat, req.Length)

	for i, addr := range addrs {
		b := Beat{Index: i, Addr: addr}

		if req.Write {
			b.WData = req.WData[i]
			b.Strobe = ActiveLanes(addr, req.Size)

			if req.Strobes != nil {
				b.Strobe = req.Strobes[i]
			}
		}

		t.Beats[i] = b
	}

	return t, nil
}

// Status returns the current status.
func (t *Transaction) Status() Status {
	return t.status
}

// Done tells if the transaction has completed, successfully or not.
func (t *Transaction) Done() bool {
	return t.status == StatusOK || t.status == StatusError
}

// Err returns the error of a failed transaction.
func (t *Transaction) Err() error {
	if t.status != StatusError {
		return nil
	}

	b := t.Beats[t.failedBeat]

	return errors.Wrapf(ErrResponse, "transaction %s beat %d at 0x%08x",
		t.ID, b.Index, b.Addr)
}

// ReadData returns the data of the beats that completed OKAY, in beat
// order. A failed read returns a short sequence.
func (t *Transaction) ReadData() []uint32 {
	data := make([]uint32, 0, len(t.Beats))

	for _, b := range t.Beats {
		if !b.Completed || b.Resp != RespOkay {
			break
		}

		data = append(data, b.RData)
	}

	return data
}

// NumCompleted returns how many beats completed OKAY.
func (t *Transaction) NumCompleted() int {
	n := 0

	for _, b := range t.Beats {
		if b.Completed && b.Resp == RespOkay {
			n++
		}
	}

	return n
}

// FailedBeat returns the index of the beat that received ERROR, or -1.
func (t *Transaction) FailedBeat() int {
	return t.failedBeat
}

// EndCycle returns the cycle at which the transaction completed.
func (t *Transaction) EndCycle() uint64 {
	return t.endCycle
}

// OnDone registers a function to be called when the transaction completes.
func (t *Transaction) OnDone(f func(*Transaction)) {
	t.callbacks = append(t.callbacks, f)
}

// Activate marks that the master has started to issue the transaction.
func (t *Transaction) Activate() {
	if t.status != StatusPending {
		log.Panicf("transaction %s activated twice", t.ID)
	}

	t.status = StatusActive
}

// AcceptAddress records that the address phase of beat i was accepted.
func (t *Transaction) AcceptAddress(i int, cycle uint64) {
	t.Beats[i].AddrAccepted = true
	t.Beats[i].AddrCycle = cycle
}

// CompleteBeat records an OKAY data phase of beat i. It completes the
// transaction when i is the final beat and reports if it did.
func (t *Transaction) CompleteBeat(i int, rdata uint32, cycle uint64) bool {
	b := &t.Beats[i]
	b.Completed = true
	b.Resp = RespOkay
	b.DataCycle = cycle

	if !t.Req.Write {
		b.RData = rdata
	}

	if i != len(t.Beats)-1 {
		return false
	}

	t.finish(StatusOK, cycle)

	return true
}

// FailBeat records an ERROR data phase of beat i and completes the
// transaction. The remaining beats are abandoned.
func (t *Transaction) FailBeat(i int, cycle uint64) {
	b := &t.Beats[i]
	b.Completed = true
	b.Resp = RespError
	b.DataCycle = cycle
	b.RData = 0
	t.failedBeat = i

	t.finish(StatusError, cycle)
}

func (t *Transaction) finish(s Status, cycle uint64) {
	if t.Done() {
		log.Panicf("transaction %s completed twice", t.ID)
	}

	t.status = s
	t.endCycle = cycle

	for _, f := range t.callbacks {
		f(t)
	}
}
