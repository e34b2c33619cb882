package sim

import (
	"log"
	"reflect"
	"sync"
)

// A SerialEngine is an Engine that handles one event at a time. Events of
// the same time are handled in the order they were scheduled.
type SerialEngine struct {
	HookableBase

	timeLock sync.RWMutex
	time     VTimeInSec
	queue    EventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{queue: NewEventQueue()}
}

// Schedule registers an event to happen in the future.
func (e *SerialEngine) Schedule(evt Event) {
	now := e.CurrentTime()
	if evt.Time() < now {
		log.Panicf(
			"scheduling an event earlier than current time, "+
				"evt %s @ %.10f, now %.10f",
			reflect.TypeOf(evt), evt.Time(), now)
	}

	e.queue.Push(evt)
}

// CurrentTime returns the time of the event being handled, or of the last
// one handled.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.time
}

func (e *SerialEngine) setTime(t VTimeInSec) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run processes all the events scheduled in the SerialEngine
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for e.queue.Len() > 0 {
		if err := e.handleNext(); err != nil {
			return err
		}
	}

	return nil
}

func (e *SerialEngine) handleNext() error {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.queue.Pop()
	e.setTime(evt.Time())

	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	err := evt.Handler().Handle(evt)

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return err
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}
