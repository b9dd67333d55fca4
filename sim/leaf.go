package sim

import (
	"fmt"
	"math"
)

// LeafID is the stable numeric identity of a leaf. It is the only ordering key;
// leaf names are cosmetic.
type LeafID int

// Leaf is a resolved, validated leaf of the star.
type Leaf struct {
	ID                    LeafID
	Name                  string
	BufferSize            int
	Server                bool
	Rate                  float64 // effective generation rate (Hz)
	DistanceKm            float64 // fiber length to the switch, 0 when configured by rate
	BrightStatePopulation float64
}

// DefaultLeafName returns the display name used when a leaf has none.
func DefaultLeafName(id LeafID) string {
	return fmt.Sprintf("node%d", int(id)+1)
}

// FiberDepolarization returns the depolarizing parameter applied to a freshly generated pair:
// the bright-state population contributes 4/3*alpha (single-click fidelity 1-alpha) and the
// fiber contributes 1-exp(-distance*perKm). The two channels compose multiplicatively.
func (l Leaf) FiberDepolarization(perKm float64) float64 {
	keep := 1 - math.Min(1, 4.0/3.0*l.BrightStatePopulation)
	keep *= math.Exp(-l.DistanceKm * perKm)
	return 1 - keep
}
