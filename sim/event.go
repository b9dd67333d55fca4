package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks), a Priority used to order events sharing a
// timestamp (lower first), and an Execute method that advances simulation state.
type Event interface {
	Timestamp() int64
	Priority() int
	Execute(*Simulator)
}

// Event priorities.
const (
	PriorityGeneration = 0
)

// GenerationEvent is a successful entanglement generation on one link.
type GenerationEvent struct {
	time int64  // Simulation time of the success (in ticks)
	Leaf LeafID // The link that succeeded
}

// NewGenerationEvent creates a generation event for leaf at time t.
func NewGenerationEvent(t int64, leaf LeafID) *GenerationEvent {
	return &GenerationEvent{time: t, Leaf: leaf}
}

// Timestamp returns the scheduled time of the GenerationEvent.
func (e *GenerationEvent) Timestamp() int64 {
	return e.time
}

// Priority returns PriorityGeneration.
func (e *GenerationEvent) Priority() int {
	return PriorityGeneration
}

// Execute buffers the new qubit, lets the switch fuse whatever is ready and schedules the
// link's next success.
func (e *GenerationEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< Generation: leaf %d at %d ticks", e.Leaf, e.time)
	sim.handleGeneration(e.Leaf, e.time)
}
