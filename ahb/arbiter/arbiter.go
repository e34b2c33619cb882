// Package arbiter grants the shared address bus to one master at a time.
package arbiter

import (
	"log"

	"github.com/sarchlab/amba/sim"
)

// None is the grant when no master owns the bus.
const None = -1

// HookPosGrantChange marks a change of bus ownership. The hook item is a
// GrantChange.
var HookPosGrantChange = &sim.HookPos{Name: "Grant Change"}

// GrantChange describes a handover of the bus.
type GrantChange struct {
	From, To int
}

// Arbiter is a round-robin arbiter. The grantee keeps the bus only while it
// is the sole requester; as soon as another master also requests, the grant
// rotates to the next requester after the grantee. Ownership changes only on
// cycles where HREADY is high.
type Arbiter struct {
	*sim.ComponentBase

	numMasters int
	grant      int
	last       int
}

// NumMasters returns the number of masters that the arbiter serves.
func (a *Arbiter) NumMasters() int {
	return a.numMasters
}

// Grant returns the index of the master that owns the address bus in the
// current cycle, or None.
func (a *Arbiter) Grant() int {
	return a.grant
}

// Granted tells if master i owns the address bus.
func (a *Arbiter) Granted(i int) bool {
	return a.grant == i
}

// Step decides the grant of the next cycle.
func (a *Arbiter) Step(requests []bool, hready bool) {
	if len(requests) != a.numMasters {
		log.Panicf("arbiter %s expects %d requests, got %d",
			a.Name(), a.numMasters, len(requests))
	}

	if !hready {
		return
	}

	next := a.decide(requests)
	if next == a.grant {
		return
	}

	change := GrantChange{From: a.grant, To: next}
	a.grant = next

	if next != None {
		a.last = next
	}

	a.InvokeHook(sim.HookCtx{
		Domain: a,
		Pos:    HookPosGrantChange,
		Item:   change,
	})
}

func (a *Arbiter) decide(requests []bool) int {
	numRequests := 0
	for _, r := range requests {
		if r {
			numRequests++
		}
	}

	if numRequests == 0 {
		return None
	}

	if a.grant != None && requests[a.grant] && numRequests == 1 {
		return a.grant
	}

	from := a.grant
	if from == None {
		from = a.last
	}

	for i := 1; i <= a.numMasters; i++ {
		candidate := (from + i) % a.numMasters
		if candidate < 0 {
			candidate += a.numMasters
		}

		if requests[candidate] {
			return candidate
		}
	}

	return None
}
