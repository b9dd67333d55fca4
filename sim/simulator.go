// Implements the discrete-event simulation loop of the switch.

package sim

import (
	"fmt"
	"iter"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qswitch-sim/sim/quantum"
	"github.com/inference-sim/qswitch-sim/sim/trace"
)

// Simulator is the run context of one simulation: clock, buffers, generators, scheduler and
// metrics all hang off it. A Simulator runs exactly once.
type Simulator struct {
	Config     Config
	Horizon    int64 // ticks; math.MaxInt64 when bounded by MaxEvents only
	Leaves     []Leaf
	Buffers    []*LeafBuffer
	Generators []*LinkGenerator
	Scheduler  *SwitchScheduler
	Metrics    *MetricsRecorder
	Trace      *trace.SimulationTrace // nil unless trace level is decisions
	Backend    quantum.Backend

	substrate   Substrate
	rng         *PartitionedRNG
	generations int64
	nextSeq     uint64
	stopped     bool
	ran         bool
}

// NewSimulator validates cfg and builds a ready-to-run simulator. Configuration errors are
// returned before any simulated time advances.
func NewSimulator(cfg Config) (*Simulator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.warnSuspicious()

	backend, err := quantum.NewBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	substrate, err := NewSubstrate(cfg.Substrate)
	if err != nil {
		return nil, err
	}

	leaves := cfg.ResolveLeaves()
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed), cfg.RNG)
	s := &Simulator{
		Config:     cfg,
		Horizon:    math.MaxInt64,
		Leaves:     leaves,
		Buffers:    make([]*LeafBuffer, len(leaves)),
		Generators: make([]*LinkGenerator, len(leaves)),
		Metrics:    NewMetricsRecorder(len(leaves)),
		Backend:    backend,
		substrate:  substrate,
		rng:        rng,
	}
	if cfg.Runtime > 0 {
		s.Horizon = SecondsToTicks(cfg.Runtime)
	}
	if trace.TraceLevel(cfg.Trace) == trace.TraceLevelDecisions {
		s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions}, len(leaves))
	}

	server := LeafID(-1)
	for _, leaf := range leaves {
		s.Buffers[leaf.ID] = NewLeafBuffer(leaf.ID, leaf.BufferSize)
		if leaf.Server {
			server = leaf.ID
		}
	}
	for _, leaf := range leaves {
		sampler, err := NewArrivalSampler(cfg.Generation.Process, leaf.Rate)
		if err != nil {
			return nil, err
		}
		var lifetimes Source
		if cfg.Noise.ExpiryRate > 0 {
			lifetimes = rng.ForSubsystem(SubsystemExpiry(leaf.ID))
		}
		s.Generators[leaf.ID] = NewLinkGenerator(leaf, sampler, rng.ForSubsystem(SubsystemLink(leaf.ID)),
			lifetimes, cfg.Noise.ExpiryRate, cfg.Noise.FiberDepolarPerKm, backend)
	}

	synth := NewStateSynthesizer(s.Buffers, NoiseModel{DecayRate: cfg.Noise.DecayRate}, backend)
	s.Scheduler = NewSwitchScheduler(s.Buffers, server, cfg.ConnectSize, cfg.Selection,
		SecondsToTicks(cfg.Noise.Cutoff), synth)
	return s, nil
}

// Now returns the current simulated time in ticks.
func (s *Simulator) Now() int64 {
	return s.substrate.Now()
}

// Schedule enqueues an event on the substrate.
func (s *Simulator) Schedule(ev Event) {
	s.substrate.Schedule(ev)
}

// Run executes the simulation until the horizon or MaxEvents generation events and returns
// the result. Running a Simulator twice panics.
func (s *Simulator) Run() *Result {
	if s.ran {
		violate("Simulator.Run", "simulator already ran; create a new one per run")
	}
	s.ran = true
	runID := uuid.New().String()
	logrus.Infof("Starting run %s: %d leaves, seed=%d, horizon=%d ticks, max_events=%d",
		runID, len(s.Leaves), s.Config.Seed, s.Horizon, s.Config.MaxEvents)

	for _, g := range s.Generators {
		s.scheduleArrival(g, 0)
	}
	s.substrate.Run(s.Horizon, func(ev Event) bool {
		ev.Execute(s)
		return !s.stopped
	})

	elapsed := s.Horizon
	if s.Config.Runtime == 0 || s.stopped {
		elapsed = s.Now()
	}
	result := &Result{
		RunID:            runID,
		Seed:             s.Config.Seed,
		Elapsed:          elapsed,
		GenerationEvents: s.generations,
		Summary:          s.Metrics.Summarize(elapsed),
		Trace:            s.Trace,
		metrics:          s.Metrics,
	}
	logrus.Infof("Run %s complete: %d states in %g s (capacity %.4f/s, mean fidelity %.6f)",
		runID, result.Summary.States, result.Summary.ElapsedSeconds, result.Summary.Capacity, result.Summary.MeanFidelity)
	return result
}

// handleGeneration buffers a fresh pair on leaf, lets the switch fuse what is ready and
// schedules the link's next success.
func (s *Simulator) handleGeneration(leaf LeafID, now int64) {
	s.generations++
	s.nextSeq++
	s.Metrics.RecordGeneration(leaf)

	gen := s.Generators[leaf]
	q := gen.Generate(now, s.nextSeq)
	if evicted := s.Buffers[leaf].Enqueue(q); evicted != nil {
		logrus.Debugf("leaf %d buffer full at %d ticks; evicted qubit %d", leaf, now, evicted.Seq)
		s.discard(*evicted, now, EvictionOverflow)
	}

	ev := s.Scheduler.Evaluate(now)
	for _, q := range ev.Expired {
		s.discard(q, now, EvictionExpired)
	}
	for _, d := range ev.Decisions {
		s.Metrics.Record(d.Record)
		logrus.Debugf("synthesized %v at %d ticks, fidelity %.6f", d.Record.Participants, now, d.Record.Fidelity)
		if s.Trace != nil {
			s.Trace.RecordSynthesis(synthesisTraceRecord(d, s.Config.Selection, s.Scheduler.Server()))
		}
	}

	if s.Config.MaxEvents > 0 && s.generations >= s.Config.MaxEvents {
		s.stopped = true
		return
	}
	s.scheduleArrival(gen, now)
}

// scheduleArrival schedules the next success of gen after now. A link that never succeeds
// again gets no event.
func (s *Simulator) scheduleArrival(gen *LinkGenerator, now int64) {
	if at := gen.NextArrival(now); at != Never {
		s.Schedule(NewGenerationEvent(at, gen.Leaf().ID))
	}
}

func (s *Simulator) discard(q BufferedQubit, now int64, reason EvictionReason) {
	s.Metrics.RecordEviction(q.Leaf, reason)
	if s.Trace != nil {
		s.Trace.RecordDiscard(trace.DiscardRecord{
			Clock:  now,
			Leaf:   int(q.Leaf),
			Age:    q.Age(now),
			Reason: reason.String(),
		})
	}
}

func synthesisTraceRecord(d Decision, selection string, server LeafID) trace.SynthesisRecord {
	rec := trace.SynthesisRecord{
		Clock:        d.Record.Time,
		Participants: make([]int, len(d.Record.Participants)),
		Fidelity:     d.Record.Fidelity,
		Reason:       selection,
		Candidates:   make([]trace.CandidateLeaf, len(d.Candidates)),
	}
	for i, id := range d.Record.Participants {
		rec.Participants[i] = int(id)
	}
	for i, c := range d.Candidates {
		rec.Candidates[i] = trace.CandidateLeaf{
			Leaf:         int(c.Leaf),
			Occupancy:    c.Occupancy,
			OldestAge:    c.OldestAge,
			Selected:     c.Selected,
			IsServerLeaf: c.Leaf == server,
		}
	}
	return rec
}

// Result is the outcome of one run.
type Result struct {
	RunID            string
	Seed             int64
	Elapsed          int64 // ticks of simulated time the capacity is measured over
	GenerationEvents int64
	Summary          Summary
	Trace            *trace.SimulationTrace

	metrics *MetricsRecorder
}

// Records returns the run's state records; see MetricsRecorder.All.
func (r *Result) Records() iter.Seq[StateRecord] {
	return r.metrics.All()
}

// Metrics returns the run's recorder.
func (r *Result) Metrics() *MetricsRecorder {
	return r.metrics
}
