// Package sim provides the discrete-event simulation engine for a quantum-network switch.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - buffer.go: per-leaf FIFO buffers of entangled qubits (enqueue, evict-oldest, dequeue)
//   - event.go: the generation event that drives the simulation
//   - simulator.go: the event loop, run lifecycle and result assembly
//
// # Architecture
//
// A switch sits at the center of a star of N leaves. Each leaf link produces EPR pairs
// as a stochastic arrival process (generator.go, arrival.go). The switch buffers the
// switch-side halves per leaf and, whenever the synthesis condition holds, fuses one qubit
// from each participating leaf into a GHZ state (scheduler.go, synthesizer.go). Each fused
// state becomes an immutable StateRecord in the MetricsRecorder (metrics.go).
//
// Collaborators live in sub-packages:
//   - sim/quantum/: pair generation, depolarizing noise, GHZ fusion, fidelity
//   - sim/trace/: decision trace recording
//   - sim/experiment/: repeated runs, sweeps, aggregation and export
//
// # Key Interfaces
//
//   - Substrate: timestamp-ordered event scheduling (heap queue or the evtm event manager)
//   - ArrivalSampler: inter-arrival times for one link
//   - quantum.Backend: the quantum-operations collaborator
//
// All run state hangs off one Simulator; there is no package-level mutable state.
package sim
