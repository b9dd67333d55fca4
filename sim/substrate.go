package sim

import (
	"fmt"
	"math"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// Substrate is the discrete-event primitive the engine runs on: a clock, timestamp-ordered
// scheduling and a dispatch loop. Implementations are single-threaded.
type Substrate interface {
	// Now returns the current simulated time in ticks.
	Now() int64
	// Schedule enqueues e for execution at e.Timestamp().
	Schedule(e Event)
	// Run dispatches events in timestamp order until none remain at or before horizon,
	// or dispatch returns false.
	Run(horizon int64, dispatch func(Event) bool)
}

// NewSubstrate returns the substrate registered under name.
func NewSubstrate(name string) (Substrate, error) {
	switch name {
	case SubstrateHeap, "":
		return NewEventQueue(), nil
	case SubstrateEvtm:
		return NewEvtmSubstrate(), nil
	default:
		return nil, fmt.Errorf("unknown substrate %q: %w", name, ErrUnknownOption)
	}
}

// evtmRoundingTicks bounds how far evtm's float virtual time may reorder events.
const evtmRoundingTicks = 1000

// evtmMaxTicks is the latest time evtm's virtual clock can hold at the engine's resolution.
// Events after it are never dispatched, and an unbounded horizon is clamped to it.
const evtmMaxTicks = math.MaxInt64 / TicksPerSecond * TicksPerSecond

// EvtmSubstrate runs events on the evtm event manager. evtm keeps virtual time in seconds;
// the substrate keeps the exact tick timestamp of the event being dispatched so the engine
// never sees rounded times. Same-time events run in evtm's scheduling order, and the
// Priority of an event is not consulted.
type EvtmSubstrate struct {
	mgr      *evtm.EventManager
	now      int64
	horizon  int64
	halted   bool
	dispatch func(Event) bool
}

// NewEvtmSubstrate creates a substrate backed by a fresh evtm.EventManager.
func NewEvtmSubstrate() *EvtmSubstrate {
	return &EvtmSubstrate{mgr: evtm.New()}
}

func (s *EvtmSubstrate) Now() int64 {
	return s.now
}

func (s *EvtmSubstrate) Schedule(e Event) {
	offset := e.Timestamp() - s.now
	if offset < -evtmRoundingTicks {
		violate("EvtmSubstrate.Schedule", "event at %d scheduled before current time %d", e.Timestamp(), s.now)
	}
	if e.Timestamp() > evtmMaxTicks {
		return
	}
	offset = max(offset, 0)
	s.mgr.Schedule(s, e, evtmHandler, vrtime.SecondsToTime(TicksToSeconds(offset)))
}

func (s *EvtmSubstrate) Run(horizon int64, dispatch func(Event) bool) {
	s.horizon = horizon
	s.dispatch = dispatch
	s.mgr.Run(TicksToSeconds(min(horizon, evtmMaxTicks)))
}

// evtmHandler is the evtm.EventHandlerFunction for every engine event.
func evtmHandler(_ *evtm.EventManager, context any, data any) any {
	s := context.(*EvtmSubstrate)
	e := data.(Event)
	if s.halted || e.Timestamp() > s.horizon {
		return nil
	}
	s.now = max(s.now, e.Timestamp())
	if !s.dispatch(e) {
		s.halted = true
	}
	return nil
}
