package tracing

import (
	"sync"

	"github.com/sarchlab/amba/sim"
)

// AverageTimeTracer computes the mean latency of the tasks of interest.
type AverageTimeTracer struct {
	timeTeller sim.TimeTeller
	filter     TaskFilter

	lock      sync.Mutex
	inflight  map[string]sim.VTimeInSec
	total     sim.VTimeInSec
	taskCount uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer. A nil filter
// accepts every task.
func NewAverageTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *AverageTimeTracer {
	return &AverageTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]sim.VTimeInSec),
	}
}

// AverageTime returns the mean time between start and end of the completed
// tasks.
func (t *AverageTimeTracer) AverageTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.taskCount == 0 {
		return 0
	}

	return t.total / sim.VTimeInSec(t.taskCount)
}

// TotalCount returns the number of completed tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// StartTask records the task start time
func (t *AverageTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflight[task.ID] = t.timeTeller.CurrentTime()
	t.lock.Unlock()
}

// StepTask does nothing
func (t *AverageTimeTracer) StepTask(_ Task) {}

// EndTask accumulates the latency of the task.
func (t *AverageTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)
	t.total += t.timeTeller.CurrentTime() - start
	t.taskCount++
}
