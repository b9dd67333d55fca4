package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qswitch-sim/sim/quantum"
)

func TestStateSynthesizer_EmptyParticipants_PanicsWithContractViolation(t *testing.T) {
	buffers := []*LeafBuffer{NewLeafBuffer(0, 1), NewLeafBuffer(1, 1)}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, quantum.PauliFrameBackend{})

	defer func() {
		cv, ok := recover().(*ContractViolation)
		require.True(t, ok)
		assert.Equal(t, "StateSynthesizer.Synthesize", cv.Op)
	}()
	synth.Synthesize(0, nil)
}

// nanBackend is a Pauli-frame backend whose fidelity is undefined.
type nanBackend struct{ quantum.PauliFrameBackend }

func (nanBackend) Fidelity(quantum.State) (float64, error) { return math.NaN(), nil }

func TestStateSynthesizer_NaNFidelity_PanicsWithContractViolation(t *testing.T) {
	// GIVEN a backend that reports NaN fidelity
	buffers := []*LeafBuffer{NewLeafBuffer(0, 1), NewLeafBuffer(1, 1)}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, nanBackend{})
	buffers[0].Enqueue(qubit(0, 0, 1))
	buffers[1].Enqueue(qubit(1, 0, 2))

	// THEN synthesis refuses to produce a record
	defer func() {
		cv, ok := recover().(*ContractViolation)
		require.True(t, ok)
		assert.Equal(t, "StateSynthesizer.Synthesize", cv.Op)
	}()
	synth.Synthesize(0, []LeafID{0, 1})
}

func TestStateSynthesizer_EmptyParticipantBuffer_Panics(t *testing.T) {
	// GIVEN a participant whose buffer is empty
	buffers := []*LeafBuffer{NewLeafBuffer(0, 1), NewLeafBuffer(1, 1)}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, quantum.PauliFrameBackend{})
	buffers[0].Enqueue(qubit(0, 0, 1))

	// THEN synthesis halts with a contract violation instead of producing a record
	assert.PanicsWithError(t, "contract violation in LeafBuffer.DequeueOldest: buffer of leaf 1 is empty", func() {
		synth.Synthesize(0, []LeafID{0, 1})
	})
}

func TestStateSynthesizer_NoNoise_IdealFidelity(t *testing.T) {
	buffers := []*LeafBuffer{NewLeafBuffer(0, 1), NewLeafBuffer(1, 1), NewLeafBuffer(2, 1)}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, quantum.PauliFrameBackend{})
	for i := range buffers {
		buffers[i].Enqueue(qubit(LeafID(i), int64(i), uint64(i)))
	}

	rec := synth.Synthesize(10, []LeafID{0, 1, 2})

	assert.InDelta(t, 1.0, rec.Fidelity, 1e-12)
	assert.Equal(t, int64(10), rec.Time)
	assert.Equal(t, []int64{10, 9, 8}, rec.Ages)
	for _, b := range buffers {
		assert.Equal(t, 0, b.Len(), "each participant gives up exactly one qubit")
	}
}

func TestStateSynthesizer_BufferingNoise_LowersFidelityWithAge(t *testing.T) {
	// GIVEN two identical synthesizers whose qubits differ only in buffered time
	fidelityAfter := func(age int64) float64 {
		buffers := []*LeafBuffer{NewLeafBuffer(0, 1), NewLeafBuffer(1, 1)}
		synth := NewStateSynthesizer(buffers, NoiseModel{DecayRate: 100}, quantum.PauliFrameBackend{})
		now := SecondsToTicks(1)
		buffers[0].Enqueue(qubit(0, now-age, 1))
		buffers[1].Enqueue(qubit(1, now-age, 2))
		return synth.Synthesize(now, []LeafID{0, 1}).Fidelity
	}

	// THEN older qubits give a lower fidelity
	fresh := fidelityAfter(0)
	stale := fidelityAfter(SecondsToTicks(0.005))
	assert.InDelta(t, 1.0, fresh, 1e-12)
	assert.Less(t, stale, fresh)

	// two Werner pairs with w=exp(-0.5) each
	w := 0.6065306597126334
	assert.InDelta(t, (1+3*w*w)/4, stale, 1e-9)
}

func TestStateSynthesizer_RecordDoesNotAliasInput(t *testing.T) {
	buffers := []*LeafBuffer{NewLeafBuffer(0, 1), NewLeafBuffer(1, 1)}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, quantum.PauliFrameBackend{})
	buffers[0].Enqueue(qubit(0, 0, 1))
	buffers[1].Enqueue(qubit(1, 0, 2))
	participants := []LeafID{0, 1}

	rec := synth.Synthesize(0, participants)
	participants[0] = 7

	assert.Equal(t, []LeafID{0, 1}, rec.Participants)
}
