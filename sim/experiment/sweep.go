package experiment

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/qswitch-sim/sim"
)

// SweepFile is a sweep definition: a base scenario and named variations of it.
//
//	runs: 10
//	base:
//	  runtime: 1
//	  num_leaves: 5
//	  buffer_size: 1
//	  generation: {rate: 1000}
//	scenarios:
//	  - name: b1
//	  - name: b5
//	    set: {buffer_size: 5}
type SweepFile struct {
	Runs      int        `yaml:"runs"`
	Base      yaml.Node  `yaml:"base"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario overrides fields of the base config. Keys under set are config keys; lists
// replace the base list rather than merging into it.
type Scenario struct {
	Name string    `yaml:"name"`
	Set  yaml.Node `yaml:"set"`
}

// ResolvedScenario is one fully specified sweep entry.
type ResolvedScenario struct {
	Name   string
	Config sim.Config
}

// Sweep is a parsed, validated sweep.
type Sweep struct {
	Runs      int
	Scenarios []ResolvedScenario
}

// LoadSweep reads and resolves a sweep file.
func LoadSweep(path string) (*Sweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sweep: %w", err)
	}
	return ParseSweep(data)
}

// ParseSweep decodes a sweep strictly and validates every resolved scenario.
func ParseSweep(data []byte) (*Sweep, error) {
	var f SweepFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sweep: %w: %v", sim.ErrUnknownOption, err)
	}
	if f.Runs == 0 {
		f.Runs = 1
	}
	if f.Runs < 0 {
		return nil, fmt.Errorf("runs must be positive, got %d", f.Runs)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("sweep defines no scenarios")
	}

	if err := decodeNode(&f.Base, &sim.Config{}); err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	sweep := &Sweep{Runs: f.Runs}
	seen := make(map[string]bool, len(f.Scenarios))
	for i, sc := range f.Scenarios {
		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("scenario_%d", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate scenario name %q", name)
		}
		seen[name] = true

		// yaml.v3 decodes through non-nil pointers, so every scenario gets its own base.
		var cfg sim.Config
		if err := decodeNode(&f.Base, &cfg); err != nil {
			return nil, fmt.Errorf("base: %w", err)
		}
		if err := decodeNode(&sc.Set, &cfg); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		sweep.Scenarios = append(sweep.Scenarios, ResolvedScenario{Name: name, Config: cfg})
	}
	return sweep, nil
}

// Run executes every scenario of the sweep in order. Results are keyed by scenario name.
func (s *Sweep) Run() ([]Aggregate, map[string][]*sim.Result, error) {
	aggs := make([]Aggregate, 0, len(s.Scenarios))
	results := make(map[string][]*sim.Result, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		agg, rs, err := RunMultiple(sc.Name, sc.Config, s.Runs)
		if err != nil {
			return nil, nil, err
		}
		aggs = append(aggs, agg)
		results[sc.Name] = rs
	}
	return aggs, results, nil
}

// decodeNode decodes node onto out with strict field checking. A zero node leaves out as is.
func decodeNode(node *yaml.Node, out any) error {
	if node.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	if err := decodeStrict(data, out); err != nil {
		return fmt.Errorf("%w: %v", sim.ErrUnknownOption, err)
	}
	return nil
}

func decodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}
