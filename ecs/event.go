package ecs

import (
	"fmt"
	"iter"
	"reflect"
)

// Events is the double-buffered queue of one event type, stored as a resource.
// An event sent during a frame stays readable for that frame and the next one.
type Events[E any] struct {
	previous      []E
	current       []E
	previousStart uint64
	currentStart  uint64
}

// Send appends an event to the current buffer.
func (ev *Events[E]) Send(e E) {
	ev.current = append(ev.current, e)
}

// SendBatch appends several events in order.
func (ev *Events[E]) SendBatch(events ...E) {
	ev.current = append(ev.current, events...)
}

// Update ages the buffers: the current events become the previous ones and the
// events that were already previous are dropped.
func (ev *Events[E]) Update() {
	clear(ev.previous)
	ev.previous, ev.current = ev.current, ev.previous[:0]
	ev.previousStart = ev.currentStart
	ev.currentStart = ev.previousStart + uint64(len(ev.previous))
}

// Iter yields every readable event: the previous buffer, then the current one.
func (ev *Events[E]) Iter() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, e := range ev.previous {
			if !yield(e) {
				return
			}
		}
		for _, e := range ev.current {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of readable events.
func (ev *Events[E]) Len() int {
	return len(ev.previous) + len(ev.current)
}

// Clear drops every readable event.
func (ev *Events[E]) Clear() {
	ev.Update()
	ev.Update()
}

func (ev *Events[E]) total() uint64 {
	return ev.currentStart + uint64(len(ev.current))
}

// since yields the events with a sequence number of at least cursor.
func (ev *Events[E]) since(cursor uint64) iter.Seq[E] {
	return func(yield func(E) bool) {
		for i, e := range ev.previous {
			if ev.previousStart+uint64(i) < cursor {
				continue
			}
			if !yield(e) {
				return
			}
		}
		for i, e := range ev.current {
			if ev.currentStart+uint64(i) < cursor {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// AddEvent stores an empty Events[E] resource if none exists and registers it
// for aging by UpdateEvents.
func AddEvent[E any](w *World) {
	t := typeOf[Events[E]]()

	w.mu.Lock()
	_, registered := w.events[t]
	if !registered {
		w.events[t] = func(w *World) {
			if ev, ok := GetResource[Events[E]](w); ok {
				ev.Update()
			}
		}
		w.eventOrder = append(w.eventOrder, t)
	}
	w.mu.Unlock()

	if !HasResource[Events[E]](w) {
		InsertResource(w, Events[E]{})
	}
}

// UpdateEvents ages every registered event type. The App calls it once at the
// start of every frame.
func (w *World) UpdateEvents() {
	w.mu.RLock()
	updaters := make([]func(*World), 0, len(w.eventOrder))
	for _, t := range w.eventOrder {
		updaters = append(updaters, w.events[t])
	}
	w.mu.RUnlock()

	for _, update := range updaters {
		update(w)
	}
}

// EventTypes lists the registered event types in registration order.
func (w *World) EventTypes() []reflect.Type {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]reflect.Type(nil), w.eventOrder...)
}

// EventWriter is a system parameter that sends events of type E.
type EventWriter[E any] struct {
	world *World
}

func (ew *EventWriter[E]) Init(w *World, access *SystemAccess) error {
	ew.world = w
	AddEvent[E](w)
	return mergeParamAccess(access, NewAccess(WritesResource[Events[E]]()), fmt.Sprintf("EventWriter[%s]", typeOf[E]()))
}

// Send queues an event for readers.
func (ew *EventWriter[E]) Send(e E) {
	if ev, ok := GetResource[Events[E]](ew.world); ok {
		ev.Send(e)
	}
}

// SendBatch queues several events in order.
func (ew *EventWriter[E]) SendBatch(events ...E) {
	if ev, ok := GetResource[Events[E]](ew.world); ok {
		ev.SendBatch(events...)
	}
}

// EventReader is a system parameter that reads events of type E. Each reader
// keeps its own cursor, so Read yields every event at most once per reader.
type EventReader[E any] struct {
	world  *World
	cursor uint64
}

func (er *EventReader[E]) Init(w *World, access *SystemAccess) error {
	er.world = w
	er.cursor = 0
	AddEvent[E](w)
	return mergeParamAccess(access, NewAccess(ReadsResource[Events[E]]()), fmt.Sprintf("EventReader[%s]", typeOf[E]()))
}

// NewEventReader returns a reader over w's E events that starts at the oldest readable event.
func NewEventReader[E any](w *World) *EventReader[E] {
	AddEvent[E](w)
	return &EventReader[E]{world: w}
}

// Read yields the events this reader has not seen yet and marks them read.
func (er *EventReader[E]) Read() iter.Seq[E] {
	return func(yield func(E) bool) {
		ev, ok := GetResource[Events[E]](er.world)
		if !ok {
			return
		}
		start := er.cursor
		if oldest := ev.previousStart; start < oldest {
			start = oldest
		}
		er.cursor = start
		for e := range ev.since(start) {
			er.cursor++
			if !yield(e) {
				return
			}
		}
		er.cursor = ev.total()
	}
}

// Len returns the number of unread events.
func (er *EventReader[E]) Len() int {
	ev, ok := GetResource[Events[E]](er.world)
	if !ok {
		return 0
	}
	n := 0
	for range ev.since(er.cursor) {
		n++
	}
	return n
}

// Clear marks every readable event as read.
func (er *EventReader[E]) Clear() {
	if ev, ok := GetResource[Events[E]](er.world); ok {
		er.cursor = ev.total()
	}
}
