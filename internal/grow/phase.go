// Package grow contains the core grow-tracking domain: growth phases,
// the per-plant phase history and watering log, and the derived metrics
// computed from them. Everything here is a pure function over immutable
// append-only logs plus an explicit "now" - persistence, events and
// scheduling live elsewhere.
package grow

import "fmt"

// Phase is a growth phase a plant passes through.
type Phase string

const (
	PhaseEarlyVeg      Phase = "early_veg"
	PhaseMidLateVeg    Phase = "mid_late_veg"
	PhaseEarlyFlower   Phase = "early_flower"
	PhaseMidLateFlower Phase = "mid_late_flower"
	PhaseFlushing      Phase = "flushing"
	PhaseDone          Phase = "done"
)

// Phases lists all current phases in lifecycle order.
var Phases = []Phase{
	PhaseEarlyVeg,
	PhaseMidLateVeg,
	PhaseEarlyFlower,
	PhaseMidLateFlower,
	PhaseFlushing,
	PhaseDone,
}

// vegPhases and flowerPhases define the fixed grouping used by the
// total_veg_days / total_flower_days summaries.
var vegPhases = map[Phase]bool{
	PhaseEarlyVeg:   true,
	PhaseMidLateVeg: true,
}

var flowerPhases = map[Phase]bool{
	PhaseEarlyFlower:   true,
	PhaseMidLateFlower: true,
	PhaseFlushing:      true,
}

// legacyPhases maps the phase names dropped from the deprecated 8-phase
// taxonomy to their current equivalents. The old mid/late split was
// collapsed into the combined mid_late phases; the other four legacy names
// are unchanged in the current taxonomy.
var legacyPhases = map[Phase]Phase{
	"mid_veg":    PhaseMidLateVeg,
	"late_veg":   PhaseMidLateVeg,
	"mid_flower":  PhaseMidLateFlower,
	"late_flower": PhaseMidLateFlower,
}

// Valid reports whether p is one of the current phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseEarlyVeg, PhaseMidLateVeg, PhaseEarlyFlower, PhaseMidLateFlower, PhaseFlushing, PhaseDone:
		return true
	}
	return false
}

// IsVeg reports whether p belongs to the vegetative group.
func (p Phase) IsVeg() bool {
	return vegPhases[p]
}

// IsFlower reports whether p belongs to the flowering group.
func (p Phase) IsFlower() bool {
	return flowerPhases[p]
}

// ParsePhase validates a phase name from external input.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return p, nil
}

// MigratePhase maps a phase name recorded under the deprecated 8-phase
// taxonomy to its current equivalent. Current names pass through unchanged.
func MigratePhase(p Phase) (Phase, error) {
	if p.Valid() {
		return p, nil
	}
	if mapped, ok := legacyPhases[p]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, p)
}
