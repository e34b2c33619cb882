// Package accessagent provides a traffic generator that checks a bus system
// against a reference model of its memory.
package accessagent

import (
	"log"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/sim"
)

// ErrWrongData is recorded when a read returns something other than what
// the reference model holds.
var ErrWrongData = errors.New("read data differs from the reference model")

var dumpLog = false

var sizes = []ahb.Size{ahb.SizeByte, ahb.SizeHalfword, ahb.SizeWord}

var wordBursts = []ahb.Burst{
	ahb.BurstSingle, ahb.BurstIncr, ahb.BurstIncr4, ahb.BurstWrap4,
	ahb.BurstIncr8, ahb.BurstWrap8,
}

type access struct {
	req   ahb.TransferRequest
	addrs []uint32
}

// An AccessAgent issues random reads and writes through one master of a
// bus. Writes update KnownValue, and every completed read is compared
// against it.
type AccessAgent struct {
	*sim.ComponentBase

	bus    *fabric.Bus
	master int
	base   uint32
	size   uint32
	rand   *rand.Rand

	WriteLeft  int
	ReadLeft   int
	KnownValue map[uint32]uint32

	pending    map[*ahb.Transaction]access
	numChecked int
	errs       []error
}

// Done tells if every request has been issued and has completed.
func (a *AccessAgent) Done() bool {
	return a.WriteLeft == 0 && a.ReadLeft == 0 && len(a.pending) == 0
}

// NumChecked returns how many reads were compared with the model.
func (a *AccessAgent) NumChecked() int {
	return a.numChecked
}

// Errors returns the mismatches and bus errors seen so far.
func (a *AccessAgent) Errors() []error {
	return a.errs
}

// Tick issues at most one new request. It returns true if a request was
// accepted by the master.
func (a *AccessAgent) Tick() bool {
	if a.ReadLeft == 0 && a.WriteLeft == 0 {
		return false
	}

	if a.shouldRead() {
		return a.doRead()
	}

	return a.doWrite()
}

func (a *AccessAgent) shouldRead() bool {
	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rand.Float64() > 0.5
}

func (a *AccessAgent) doRead() bool {
	req := a.randomRequest(false)

	if !a.issue(req) {
		return false
	}

	a.ReadLeft--

	return true
}

func (a *AccessAgent) doWrite() bool {
	req := a.randomRequest(true)

	if !a.issue(req) {
		return false
	}

	a.WriteLeft--

	return true
}

func (a *AccessAgent) randomRequest(write bool) ahb.TransferRequest {
	size := sizes[a.rand.Intn(len(sizes))]
	burst := ahb.BurstSingle
	length := 1

	if size == ahb.SizeWord {
		burst = wordBursts[a.rand.Intn(len(wordBursts))]
		length = burst.Beats()

		if length == 0 {
			length = 1 + a.rand.Intn(6)
		}
	}

	span := size.Bytes() * uint32(length)
	if burst.IsWrap() {
		span = 0
	}

	slots := (a.size - span) / size.Bytes()
	addr := a.base + uint32(a.rand.Intn(int(slots)))*size.Bytes()

	req := ahb.TransferRequest{
		Addr:   addr,
		Write:  write,
		Size:   size,
		Burst:  burst,
		Length: length,
	}

	if write {
		req.WData = make([]uint32, length)
		for i := range req.WData {
			req.WData[i] = a.rand.Uint32()
		}
	}

	return req
}

func (a *AccessAgent) issue(req ahb.TransferRequest) bool {
	if req.Validate() != nil {
		return false
	}

	addrs := ahb.BeatAddresses(req.Addr, req.Size, req.Burst, req.Length)
	if a.overlapsPending(addrs) {
		return false
	}

	txn, err := a.bus.Submit(a.master, req)
	if err != nil {
		return false
	}

	acc := access{req: req, addrs: addrs}
	a.pending[txn] = acc

	if req.Write {
		a.updateModel(acc)
	}

	txn.OnDone(a.complete)

	if dumpLog {
		log.Printf("%s: issue %s\n", a.Name(), txn.ID)
	}

	return true
}

func (a *AccessAgent) overlapsPending(addrs []uint32) bool {
	for _, acc := range a.pending {
		for _, x := range acc.addrs {
			for _, y := range addrs {
				if ahb.AlignWord(x) == ahb.AlignWord(y) {
					return true
				}
			}
		}
	}

	return false
}

func (a *AccessAgent) updateModel(acc access) {
	for i, addr := range acc.addrs {
		word := ahb.AlignWord(addr)
		lanes := ahb.PlaceData(addr, acc.req.Size, 0xFFFF_FFFF)
		placed := ahb.PlaceData(addr, acc.req.Size, acc.req.WData[i])

		a.KnownValue[word] = a.KnownValue[word]&^lanes | placed
	}
}

func (a *AccessAgent) complete(txn *ahb.Transaction) {
	acc := a.pending[txn]
	delete(a.pending, txn)

	if txn.Status() != ahb.StatusOK {
		a.errs = append(a.errs, txn.Err())
		return
	}

	if acc.req.Write {
		return
	}

	data := txn.ReadData()
	for i, addr := range acc.addrs {
		expected := ahb.ExtractData(addr, acc.req.Size,
			a.KnownValue[ahb.AlignWord(addr)])

		if data[i] != expected {
			a.errs = append(a.errs, errors.Wrapf(ErrWrongData,
				"%s beat %d at 0x%08x: got 0x%x, expected 0x%x",
				txn.ID, i, addr, data[i], expected))
		}

		a.numChecked++
	}
}
