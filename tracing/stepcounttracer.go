package tracing

import (
	"sync"
)

// StepCountTracer counts how many times each step is reached, and by how
// many distinct tasks.
type StepCountTracer struct {
	filter TaskFilter

	lock      sync.Mutex
	inflight  map[string]map[string]bool
	stepNames []string
	stepCount map[string]uint64
	taskCount map[string]uint64
}

// NewStepCountTracer creates a new StepCountTracer. A nil filter accepts
// every task.
func NewStepCountTracer(filter TaskFilter) *StepCountTracer {
	return &StepCountTracer{
		filter:    filter,
		inflight:  make(map[string]map[string]bool),
		stepCount: make(map[string]uint64),
		taskCount: make(map[string]uint64),
	}
}

// GetStepNames returns the step names in the order first seen.
func (t *StepCountTracer) GetStepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.stepNames...)
}

// GetStepCount returns how many times a step was reached.
func (t *StepCountTracer) GetStepCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stepCount[stepName]
}

// GetTaskCount returns how many tasks reached a step at least once.
func (t *StepCountTracer) GetTaskCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount[stepName]
}

// StartTask starts following a task.
func (t *StepCountTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflight[task.ID] = make(map[string]bool)
	t.lock.Unlock()
}

// StepTask counts the step of a followed task.
func (t *StepCountTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	seen, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	for _, step := range task.Steps {
		if _, known := t.stepCount[step.What]; !known {
			t.stepNames = append(t.stepNames, step.What)
		}

		t.stepCount[step.What]++

		if !seen[step.What] {
			seen[step.What] = true
			t.taskCount[step.What]++
		}
	}
}

// EndTask stops following a task.
func (t *StepCountTracer) EndTask(task Task) {
	t.lock.Lock()
	delete(t.inflight, task.ID)
	t.lock.Unlock()
}
