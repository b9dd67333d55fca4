package sim

import "container/heap"

// queuedEvent pairs an event with the queue-assigned ID used as the final tie-breaker.
type queuedEvent struct {
	event Event
	id    uint64
}

// EventQueue implements a priority queue with deterministic ordering.
// Ordering: timestamp → priority → event ID (assigned per queue on Schedule).
type EventQueue struct {
	events []queuedEvent
	nextID uint64
	clock  int64
}

// NewEventQueue creates an empty event queue at time 0.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make([]queuedEvent, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Less implements heap.Interface with deterministic ordering
func (q *EventQueue) Less(i, j int) bool {
	ei, ej := q.events[i], q.events[j]

	// Primary: timestamp (lower first)
	if ei.event.Timestamp() != ej.event.Timestamp() {
		return ei.event.Timestamp() < ej.event.Timestamp()
	}

	// Secondary: priority (lower first)
	if ei.event.Priority() != ej.event.Priority() {
		return ei.event.Priority() < ej.event.Priority()
	}

	// Tertiary: event ID (lower first, deterministic tie-breaker)
	return ei.id < ej.id
}

// Swap implements heap.Interface
func (q *EventQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
}

// Push implements heap.Interface
func (q *EventQueue) Push(x any) {
	q.events = append(q.events, x.(queuedEvent))
}

// Pop implements heap.Interface
func (q *EventQueue) Pop() any {
	old := q.events
	n := len(old)
	item := old[n-1]
	old[n-1] = queuedEvent{}
	q.events = old[0 : n-1]
	return item
}

// Now returns the timestamp of the last event popped.
func (q *EventQueue) Now() int64 {
	return q.clock
}

// Schedule adds an event. Scheduling into the past is a contract violation.
func (q *EventQueue) Schedule(e Event) {
	if e.Timestamp() < q.clock {
		violate("EventQueue.Schedule", "event at %d scheduled before current time %d", e.Timestamp(), q.clock)
	}
	heap.Push(q, queuedEvent{event: e, id: q.nextID})
	q.nextID++
}

// PopNext removes and returns the next event and advances the clock to its timestamp.
func (q *EventQueue) PopNext() Event {
	if q.Len() == 0 {
		return nil
	}
	e := heap.Pop(q).(queuedEvent).event
	q.clock = e.Timestamp()
	return e
}

// Peek returns the next event without removing it
func (q *EventQueue) Peek() Event {
	if q.Len() == 0 {
		return nil
	}
	return q.events[0].event
}

// Run pops and dispatches events in order until the queue is empty, the next event lies
// beyond horizon, or dispatch returns false.
func (q *EventQueue) Run(horizon int64, dispatch func(Event) bool) {
	for q.Len() > 0 {
		if q.Peek().Timestamp() > horizon {
			return
		}
		if !dispatch(q.PopNext()) {
			return
		}
	}
}
