// Package tracing records the life of bus tasks, such as transactions and
// target accesses, through component hooks.
package tracing

import (
	"github.com/sarchlab/amba/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
	InvokeHook(sim.HookCtx)
}

// Hook positions of task events.
var (
	HookPosTaskStart = &sim.HookPos{Name: "HookPosTaskStart"}
	HookPosTaskStep  = &sim.HookPos{Name: "HookPosTaskStep"}
	HookPosTaskEnd   = &sim.HookPos{Name: "HookPosTaskEnd"}
)

// StartTask notifies the hooks of the domain that a task has started.
func StartTask(
	id string,
	parentID string,
	domain NamedHookable,
	kind string,
	what string,
	detail interface{},
) {
	if domain == nil {
		panic("domain must not be nil")
	}

	if domain.NumHooks() == 0 {
		return
	}

	switch {
	case id == "":
		panic("id must not be empty")
	case kind == "":
		panic("kind must not be empty")
	case what == "":
		panic("what must not be empty")
	case domain.Name() == "":
		panic("domain must have a name")
	}

	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskStart,
		Item: Task{
			ID:       id,
			ParentID: parentID,
			Kind:     kind,
			What:     what,
			Location: domain.Name(),
			Detail:   detail,
		},
	})
}

// AddTaskStep marks that a task has reached a milestone.
func AddTaskStep(id string, domain NamedHookable, what string) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskStep,
		Item: Task{
			ID:    id,
			Steps: []TaskStep{{What: what}},
		},
	})
}

// EndTask notifies the hooks of the domain that a task has ended.
func EndTask(id string, domain NamedHookable) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskEnd,
		Item:   Task{ID: id},
	})
}
