package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// An Engine runs scheduled events in time order. A clocked bus schedules a
// tick per cycle while it has work, so Run returns once every bus is idle.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run handles events until none is left or a handler fails.
	Run() error

	// Pause blocks the engine before its next event until Continue is
	// called.
	Pause()

	// Continue resumes a paused engine.
	Continue()
}
