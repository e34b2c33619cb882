package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/amba/datarecording"
	"github.com/sarchlab/amba/sim"
)

// Table names used by the DBTracer.
const (
	TaskTableName = "trace"
	StepTableName = "trace_steps"
)

// TaskEntry is a row of the task table.
type TaskEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
}

// StepEntry is a row of the step table.
type StepEntry struct {
	TaskID string
	What   string
	Time   float64
}

// DBTracer stores completed tasks and their steps through a DataRecorder.
type DBTracer struct {
	lock       sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime sim.VTimeInSec
	inflight           map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	backend datarecording.DataRecorder,
) *DBTracer {
	backend.CreateTable(TaskTableName, TaskEntry{})
	backend.CreateTable(StepTableName, StepEntry{})

	t := &DBTracer{
		timeTeller: timeTeller,
		backend:    backend,
		inflight:   make(map[string]Task),
	}

	atexit.Register(func() { t.Terminate() })

	return t
}

// SetTimeRange limits recording to tasks that overlap [startTime, endTime].
// A zero bound is open.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInSec) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask remembers the task until it ends.
func (t *DBTracer) StartTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.inflight[task.ID] = task
}

// StepTask records the step of a followed task.
func (t *DBTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflight[task.ID]; !ok {
		return
	}

	now := t.timeTeller.CurrentTime()
	for _, step := range task.Steps {
		t.backend.InsertData(StepTableName, StepEntry{
			TaskID: task.ID,
			What:   step.What,
			Time:   float64(now),
		})
	}
}

// EndTask writes the task into the database.
func (t *DBTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)

	original.EndTime = t.timeTeller.CurrentTime()
	if t.startTime > 0 && original.EndTime < t.startTime {
		return
	}

	t.write(original)
}

func (t *DBTracer) write(task Task) {
	t.backend.InsertData(TaskTableName, TaskEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Location,
		StartTime: float64(task.StartTime),
		EndTime:   float64(task.EndTime),
	})
}

// Terminate writes the unfinished tasks with the current time as their end
// and flushes the backend.
func (t *DBTracer) Terminate() {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.timeTeller.CurrentTime()
	for id, task := range t.inflight {
		task.EndTime = now
		t.write(task)
		delete(t.inflight, id)
	}

	t.backend.Flush()
}
