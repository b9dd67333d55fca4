package sim

import "github.com/inference-sim/qswitch-sim/sim/quantum"

// BufferedQubit is the switch-side half of an EPR pair waiting in a leaf buffer.
type BufferedQubit struct {
	Leaf      LeafID
	CreatedAt int64 // ticks
	ExpiresAt int64 // ticks, 0 = never
	Seq       uint64
	Pair      quantum.PairState
}

// Age returns how long the qubit has been buffered at now, in ticks.
func (q BufferedQubit) Age(now int64) int64 {
	return now - q.CreatedAt
}

// LeafBuffer is a FIFO of buffered qubits for one leaf, bounded by capacity.
// Enqueue on a full buffer evicts the oldest qubit first.
type LeafBuffer struct {
	leaf      LeafID
	capacity  int
	qubits    []BufferedQubit
	evictions int64
}

// NewLeafBuffer creates an empty buffer. Panics if capacity is not positive.
func NewLeafBuffer(leaf LeafID, capacity int) *LeafBuffer {
	if capacity <= 0 {
		panic("NewLeafBuffer: capacity must be positive")
	}
	return &LeafBuffer{
		leaf:     leaf,
		capacity: capacity,
		qubits:   make([]BufferedQubit, 0, capacity),
	}
}

// Enqueue appends q. If the buffer is full the oldest qubit is evicted first and returned.
func (b *LeafBuffer) Enqueue(q BufferedQubit) *BufferedQubit {
	if q.Leaf != b.leaf {
		violate("LeafBuffer.Enqueue", "qubit for leaf %d enqueued into buffer of leaf %d", q.Leaf, b.leaf)
	}
	var evicted *BufferedQubit
	if len(b.qubits) == b.capacity {
		head := b.qubits[0]
		evicted = &head
		b.qubits = b.qubits[1:]
		b.evictions++
	}
	b.qubits = append(b.qubits, q)
	if len(b.qubits) > b.capacity {
		violate("LeafBuffer.Enqueue", "leaf %d holds %d qubits, capacity %d", b.leaf, len(b.qubits), b.capacity)
	}
	return evicted
}

// PeekOldest returns the head qubit without removing it.
func (b *LeafBuffer) PeekOldest() (BufferedQubit, bool) {
	if len(b.qubits) == 0 {
		return BufferedQubit{}, false
	}
	return b.qubits[0], true
}

// DequeueOldest removes and returns the head qubit.
// Dequeue on an empty buffer is a scheduler defect and panics with a *ContractViolation.
func (b *LeafBuffer) DequeueOldest() BufferedQubit {
	if len(b.qubits) == 0 {
		violate("LeafBuffer.DequeueOldest", "buffer of leaf %d is empty", b.leaf)
	}
	q := b.qubits[0]
	b.qubits[0] = BufferedQubit{}
	b.qubits = b.qubits[1:]
	return q
}

// ExpireBefore removes every qubit whose deadline is at or before now, or whose age exceeds
// maxAge (0 disables the age limit), and returns them oldest first.
func (b *LeafBuffer) ExpireBefore(now, maxAge int64) []BufferedQubit {
	var expired []BufferedQubit
	kept := b.qubits[:0]
	for _, q := range b.qubits {
		if (q.ExpiresAt > 0 && q.ExpiresAt <= now) || (maxAge > 0 && q.Age(now) > maxAge) {
			expired = append(expired, q)
			continue
		}
		kept = append(kept, q)
	}
	clear(b.qubits[len(kept):])
	b.qubits = kept
	return expired
}

// Leaf returns the leaf this buffer belongs to.
func (b *LeafBuffer) Leaf() LeafID { return b.leaf }

// Len returns the current occupancy.
func (b *LeafBuffer) Len() int { return len(b.qubits) }

// Capacity returns the maximum occupancy.
func (b *LeafBuffer) Capacity() int { return b.capacity }

// Evictions returns the number of qubits evicted by Enqueue on a full buffer.
func (b *LeafBuffer) Evictions() int64 { return b.evictions }
