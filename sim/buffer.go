package sim

import "log"

// Hook positions of a buffer. The hook item is the element.
var (
	HookPosBufPush = &HookPos{Name: "Buffer Push"}
	HookPosBufPop  = &HookPos{Name: "Buffer Pop"}
)

// A Buffer is a bounded FIFO, such as the transaction queue of a master.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int

	// Clear drops every element.
	Clear()
}

// NewBuffer creates a buffer that holds up to capacity elements.
func NewBuffer(name string, capacity int) Buffer {
	NameMustBeValid(name)

	if capacity <= 0 {
		log.Panicf("buffer %s: capacity must be positive", name)
	}

	return &ringBuffer{
		name:  name,
		slots: make([]interface{}, capacity),
	}
}

// ringBuffer stores elements in a fixed ring of slots.
type ringBuffer struct {
	HookableBase

	name  string
	slots []interface{}
	head  int
	size  int
}

func (b *ringBuffer) Name() string {
	return b.name
}

func (b *ringBuffer) CanPush() bool {
	return b.size < len(b.slots)
}

func (b *ringBuffer) Push(e interface{}) {
	if !b.CanPush() {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.slots[(b.head+b.size)%len(b.slots)] = e
	b.size++

	b.notify(HookPosBufPush, e)
}

func (b *ringBuffer) Pop() interface{} {
	if b.size == 0 {
		return nil
	}

	e := b.slots[b.head]
	b.slots[b.head] = nil
	b.head = (b.head + 1) % len(b.slots)
	b.size--

	b.notify(HookPosBufPop, e)

	return e
}

func (b *ringBuffer) notify(pos *HookPos, e interface{}) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{Domain: b, Pos: pos, Item: e})
}

func (b *ringBuffer) Peek() interface{} {
	if b.size == 0 {
		return nil
	}

	return b.slots[b.head]
}

func (b *ringBuffer) Capacity() int {
	return len(b.slots)
}

func (b *ringBuffer) Size() int {
	return b.size
}

func (b *ringBuffer) Clear() {
	clear(b.slots)
	b.head = 0
	b.size = 0
}
