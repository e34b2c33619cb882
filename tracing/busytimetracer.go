package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/amba/sim"
)

type interval struct {
	start, end sim.VTimeInSec
}

// BusyTimeTracer measures how long a domain has at least one task of
// interest in flight. Overlapping tasks are counted once.
type BusyTimeTracer struct {
	timeTeller sim.TimeTeller
	filter     TaskFilter

	lock     sync.Mutex
	inflight map[string]sim.VTimeInSec
	done     []interval
}

// NewBusyTimeTracer creates a new BusyTimeTracer. A nil filter accepts
// every task.
func NewBusyTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]sim.VTimeInSec),
	}
}

// StartTask records the start time of a task.
func (t *BusyTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflight[task.ID] = t.timeTeller.CurrentTime()
	t.lock.Unlock()
}

// StepTask does nothing
func (t *BusyTimeTracer) StepTask(_ Task) {}

// EndTask closes the interval of a task.
func (t *BusyTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)
	t.done = append(t.done, interval{start, t.timeTeller.CurrentTime()})
}

// TerminateAllTasks ends all in-flight tasks at now.
func (t *BusyTimeTracer) TerminateAllTasks(now sim.VTimeInSec) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for id, start := range t.inflight {
		t.done = append(t.done, interval{start, now})
		delete(t.inflight, id)
	}
}

// BusyTime returns the length of the union of all completed task
// intervals.
func (t *BusyTimeTracer) BusyTime() sim.VTimeInSec {
	t.lock.Lock()
	intervals := make([]interval, len(t.done))
	copy(intervals, t.done)
	t.lock.Unlock()

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	var busy sim.VTimeInSec
	var curr *interval

	for i := range intervals {
		iv := intervals[i]

		if curr != nil && iv.start <= curr.end {
			if iv.end > curr.end {
				curr.end = iv.end
			}

			continue
		}

		if curr != nil {
			busy += curr.end - curr.start
		}

		curr = &iv
	}

	if curr != nil {
		busy += curr.end - curr.start
	}

	return busy
}
