package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/qswitch-sim/sim/quantum"
	"github.com/inference-sim/qswitch-sim/sim/trace"
)

// Selection policies for choosing participants when fewer than all leaves are fused.
const (
	SelectionOldestFirst = "oldest-first" // leaves holding the oldest buffered qubit first
	SelectionLowestIndex = "lowest-index" // leaves in index order
)

// Arrival processes for link generation.
const (
	ProcessPoisson  = "poisson"
	ProcessConstant = "constant"
)

// Event substrates.
const (
	SubstrateHeap = "heap"
	SubstrateEvtm = "evtm"
)

var (
	validSelections = map[string]bool{SelectionOldestFirst: true, SelectionLowestIndex: true}
	validProcesses  = map[string]bool{ProcessPoisson: true, ProcessConstant: true}
	validSubstrates = map[string]bool{SubstrateHeap: true, SubstrateEvtm: true}
)

// GenerationConfig groups entanglement generation parameters shared by all links.
type GenerationConfig struct {
	Process               string  `yaml:"process"`                 // "poisson" (default) or "constant"
	Rate                  float64 `yaml:"rate"`                    // default per-link success rate (Hz)
	BrightStatePopulation float64 `yaml:"bright_state_population"` // alpha in [0,1], default 0
	AttemptDuration       float64 `yaml:"attempt_duration"`        // seconds per attempt (distance mode)
	LossParameter         float64 `yaml:"loss_parameter"`          // c (distance mode)
	LossCoefficient       float64 `yaml:"loss_coefficient"`        // beta, dB/km (distance mode)
}

// NoiseConfig groups buffering and fiber noise parameters.
type NoiseConfig struct {
	DecayRate         float64 `yaml:"decay_rate"`           // buffer depolarization rate (1/s)
	FiberDepolarPerKm float64 `yaml:"fiber_depolar_per_km"` // fiber depolarization rate (1/km)
	Cutoff            float64 `yaml:"cutoff"`               // discard qubits older than this (s), 0 = never
	ExpiryRate        float64 `yaml:"expiry_rate"`          // exponential qubit lifetime rate (1/s), 0 = never
}

// LeafConfig describes one leaf. Either Rate or DistanceKm may be set; when neither is,
// the leaf uses GenerationConfig.Rate.
type LeafConfig struct {
	Name                  string   `yaml:"name"`
	Rate                  float64  `yaml:"rate"`
	DistanceKm            *float64 `yaml:"distance_km"`
	BrightStatePopulation *float64 `yaml:"bright_state_population"`
	BufferSize            *int     `yaml:"buffer_size"`
	Server                bool     `yaml:"server"`
}

// Config enumerates every recognized simulation option.
type Config struct {
	Runtime     float64          `yaml:"runtime"`      // simulated seconds, 0 = bounded by MaxEvents only
	MaxEvents   int64            `yaml:"max_events"`   // generation events, 0 = bounded by Runtime only
	Seed        int64            `yaml:"seed"`         // master seed
	NumLeaves   int              `yaml:"num_leaves"`   // used when Leaves is empty
	BufferSize  int              `yaml:"buffer_size"`  // default per-leaf capacity (must be > 0)
	ConnectSize int              `yaml:"connect_size"` // leaves per GHZ state, 0 = all leaves
	ServerLeaf  *int             `yaml:"server_leaf"`  // index of the server leaf (optional)
	Selection   string           `yaml:"selection"`
	Leaves      []LeafConfig     `yaml:"leaves"`
	Generation  GenerationConfig `yaml:"generation"`
	Noise       NoiseConfig      `yaml:"noise"`
	Backend     string           `yaml:"backend"`   // quantum backend name
	RNG         string           `yaml:"rng"`       // "math-rand" (default) or "mrg32k3a"
	Substrate   string           `yaml:"substrate"` // "heap" (default) or "evtm"
	Trace       string           `yaml:"trace"`     // "none" (default) or "decisions"
}

// LoadConfig reads a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML scenario with strict field checking.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w: %v", ErrUnknownOption, err)
	}
	return cfg, nil
}

// WithDefaults returns a copy of c with empty option names and distance-mode constants filled in.
// Numeric parameters without a physical default (buffer size, rates) are left for Validate.
func (c Config) WithDefaults() Config {
	if c.Selection == "" {
		c.Selection = SelectionOldestFirst
	}
	if c.Generation.Process == "" {
		c.Generation.Process = ProcessPoisson
	}
	if c.Generation.AttemptDuration == 0 {
		c.Generation.AttemptDuration = VardoyanAttemptDuration
	}
	if c.Generation.LossParameter == 0 {
		c.Generation.LossParameter = VardoyanLossParameter
	}
	if c.Generation.LossCoefficient == 0 {
		c.Generation.LossCoefficient = VardoyanLossCoefficient
	}
	if c.Backend == "" {
		c.Backend = quantum.BackendPauliFrame
	}
	if c.RNG == "" {
		c.RNG = RNGMathRand
	}
	if c.Substrate == "" {
		c.Substrate = SubstrateHeap
	}
	if c.Trace == "" {
		c.Trace = string(trace.TraceLevelNone)
	}
	c.Leaves = append([]LeafConfig(nil), c.Leaves...)
	return c
}

// NumLeavesResolved returns the number of leaves the config describes.
func (c Config) NumLeavesResolved() int {
	if len(c.Leaves) > 0 {
		return len(c.Leaves)
	}
	return c.NumLeaves
}

// ParticipantCount returns the number of leaves fused into each state.
func (c Config) ParticipantCount() int {
	if c.ConnectSize == 0 {
		return c.NumLeavesResolved()
	}
	return c.ConnectSize
}

// Validate checks every option and returns the first violation, wrapping one of the
// package's sentinel errors. Empty option names are validated as their defaults.
func (c Config) Validate() error {
	c = c.WithDefaults()
	n := c.NumLeavesResolved()
	if len(c.Leaves) > 0 && c.NumLeaves != 0 && c.NumLeaves != len(c.Leaves) {
		return fmt.Errorf("num_leaves=%d disagrees with %d listed leaves: %w", c.NumLeaves, len(c.Leaves), ErrTooFewLeaves)
	}
	if n < 2 {
		return fmt.Errorf("need at least 2 leaves, got %d: %w", n, ErrTooFewLeaves)
	}
	if err := validateFiniteNonNegative("runtime", c.Runtime, ErrInvalidRuntime); err != nil {
		return err
	}
	if c.MaxEvents < 0 {
		return fmt.Errorf("max_events must be non-negative, got %d: %w", c.MaxEvents, ErrInvalidRuntime)
	}
	if c.Runtime == 0 && c.MaxEvents == 0 {
		return fmt.Errorf("one of runtime or max_events must be positive: %w", ErrInvalidRuntime)
	}
	if !validSelections[c.Selection] {
		return fmt.Errorf("unknown selection %q; valid: %s, %s: %w", c.Selection, SelectionOldestFirst, SelectionLowestIndex, ErrUnknownOption)
	}
	if !validProcesses[c.Generation.Process] {
		return fmt.Errorf("unknown generation process %q; valid: %s, %s: %w", c.Generation.Process, ProcessPoisson, ProcessConstant, ErrUnknownOption)
	}
	if !validSubstrates[c.Substrate] {
		return fmt.Errorf("unknown substrate %q; valid: %s, %s: %w", c.Substrate, SubstrateHeap, SubstrateEvtm, ErrUnknownOption)
	}
	if !IsValidRNG(c.RNG) {
		return fmt.Errorf("unknown rng %q; valid: %s, %s: %w", c.RNG, RNGMathRand, RNGMRG32k3a, ErrUnknownOption)
	}
	if !trace.IsValidTraceLevel(c.Trace) {
		return fmt.Errorf("unknown trace level %q; valid: none, decisions: %w", c.Trace, ErrUnknownOption)
	}
	if !quantum.IsValidBackend(c.Backend) {
		return fmt.Errorf("unknown backend %q; valid: %s, %s: %w", c.Backend, quantum.BackendPauliFrame, quantum.BackendDensityMatrix, ErrUnknownOption)
	}

	if c.ConnectSize != 0 && (c.ConnectSize < 2 || c.ConnectSize > n) {
		return fmt.Errorf("connect_size must be 0 or in [2, %d], got %d: %w", n, c.ConnectSize, ErrInvalidConnectSize)
	}
	backend, err := quantum.NewBackend(c.Backend)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrUnknownOption)
	}
	if limit := backend.MaxQubits(); limit > 0 && c.ParticipantCount() > limit {
		return fmt.Errorf("backend %s fuses at most %d qubits, states need %d: %w", backend.Name(), limit, c.ParticipantCount(), ErrBackendLimit)
	}

	if err := validatePopulation("generation.bright_state_population", c.Generation.BrightStatePopulation); err != nil {
		return err
	}
	if c.Generation.Rate < 0 || math.IsNaN(c.Generation.Rate) || math.IsInf(c.Generation.Rate, 0) {
		return fmt.Errorf("generation.rate must be a finite non-negative number, got %f: %w", c.Generation.Rate, ErrInvalidRate)
	}
	for _, p := range []namedValue{
		{"generation.attempt_duration", c.Generation.AttemptDuration},
		{"generation.loss_parameter", c.Generation.LossParameter},
		{"generation.loss_coefficient", c.Generation.LossCoefficient},
	} {
		if p.value <= 0 || math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return fmt.Errorf("%s must be a finite positive number, got %f: %w", p.name, p.value, ErrInvalidRate)
		}
	}
	for _, p := range []namedValue{
		{"noise.decay_rate", c.Noise.DecayRate},
		{"noise.fiber_depolar_per_km", c.Noise.FiberDepolarPerKm},
		{"noise.cutoff", c.Noise.Cutoff},
		{"noise.expiry_rate", c.Noise.ExpiryRate},
	} {
		if err := validateFiniteNonNegative(p.name, p.value, ErrInvalidNoise); err != nil {
			return err
		}
	}

	servers := 0
	if c.ServerLeaf != nil {
		if *c.ServerLeaf < 0 || *c.ServerLeaf >= n {
			return fmt.Errorf("server_leaf %d out of range [0, %d): %w", *c.ServerLeaf, n, ErrInvalidServer)
		}
		servers++
	}
	for i, l := range c.Leaves {
		if l.Server && (c.ServerLeaf == nil || *c.ServerLeaf != i) {
			servers++
		}
	}
	if servers > 1 {
		return fmt.Errorf("%d leaves marked as server: %w", servers, ErrMultipleServers)
	}

	for i := 0; i < n; i++ {
		if err := c.validateLeaf(i); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) validateLeaf(i int) error {
	var lc LeafConfig
	if i < len(c.Leaves) {
		lc = c.Leaves[i]
	}
	prefix := fmt.Sprintf("leaf[%d]", i)
	capacity := c.BufferSize
	if lc.BufferSize != nil {
		capacity = *lc.BufferSize
	}
	if capacity <= 0 {
		return fmt.Errorf("%s: buffer size must be positive, got %d: %w", prefix, capacity, ErrInvalidCapacity)
	}
	if lc.BrightStatePopulation != nil {
		if err := validatePopulation(prefix+".bright_state_population", *lc.BrightStatePopulation); err != nil {
			return err
		}
	}
	if lc.Rate != 0 && lc.DistanceKm != nil {
		return fmt.Errorf("%s: rate and distance_km are mutually exclusive: %w", prefix, ErrInvalidRate)
	}
	if lc.DistanceKm != nil {
		if err := validateFiniteNonNegative(prefix+".distance_km", *lc.DistanceKm, ErrInvalidRate); err != nil {
			return err
		}
	}
	leaf := c.resolveLeaf(i)
	if leaf.Rate <= 0 || math.IsNaN(leaf.Rate) || math.IsInf(leaf.Rate, 0) {
		if lc.DistanceKm != nil && leaf.BrightStatePopulation == 0 {
			return fmt.Errorf("%s: distance mode needs a positive bright_state_population: %w", prefix, ErrInvalidPopulation)
		}
		return fmt.Errorf("%s: generation rate must be positive, got %f: %w", prefix, leaf.Rate, ErrInvalidRate)
	}
	return nil
}

// ResolveLeaves materializes the leaf set. Call on a validated config.
func (c Config) ResolveLeaves() []Leaf {
	n := c.NumLeavesResolved()
	leaves := make([]Leaf, n)
	for i := range leaves {
		leaves[i] = c.resolveLeaf(i)
	}
	return leaves
}

func (c Config) resolveLeaf(i int) Leaf {
	var lc LeafConfig
	if i < len(c.Leaves) {
		lc = c.Leaves[i]
	}
	leaf := Leaf{
		ID:                    LeafID(i),
		Name:                  lc.Name,
		BufferSize:            c.BufferSize,
		Server:                lc.Server || (c.ServerLeaf != nil && *c.ServerLeaf == i),
		BrightStatePopulation: c.Generation.BrightStatePopulation,
	}
	if leaf.Name == "" {
		leaf.Name = DefaultLeafName(LeafID(i))
	}
	if lc.BufferSize != nil {
		leaf.BufferSize = *lc.BufferSize
	}
	if lc.BrightStatePopulation != nil {
		leaf.BrightStatePopulation = *lc.BrightStatePopulation
	}
	switch {
	case lc.DistanceKm != nil:
		leaf.DistanceKm = *lc.DistanceKm
		leaf.Rate = leaf.BrightStatePopulation * DistanceToRate(leaf.DistanceKm,
			c.Generation.LossParameter, c.Generation.LossCoefficient, c.Generation.AttemptDuration)
	case lc.Rate != 0:
		leaf.Rate = lc.Rate
	default:
		leaf.Rate = c.Generation.Rate
	}
	return leaf
}

// warnSuspicious logs configurations that are valid but likely unintended.
func (c Config) warnSuspicious() {
	if c.Runtime > 0 && c.MaxEvents > 0 {
		logrus.Warnf("both runtime (%gs) and max_events (%d) set; the run stops at whichever comes first", c.Runtime, c.MaxEvents)
	}
	if c.Noise.Cutoff > 0 && c.Noise.ExpiryRate > 0 {
		logrus.Warnf("both noise.cutoff and noise.expiry_rate set; qubits expire at the earlier deadline")
	}
	if c.ConnectSize != 0 && c.ConnectSize == c.NumLeavesResolved() {
		logrus.Debugf("connect_size equals the number of leaves; equivalent to connect_size=0")
	}
}

// namedValue pairs a config key with its value for ordered validation.
type namedValue struct {
	name  string
	value float64
}

func validatePopulation(name string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("%s must be in [0, 1], got %f: %w", name, v, ErrInvalidPopulation)
	}
	return nil
}

func validateFiniteNonNegative(name string, v float64, sentinel error) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite non-negative number, got %f: %w", name, v, sentinel)
	}
	return nil
}
