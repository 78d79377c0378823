package grow

import (
	"fmt"
	"time"
)

// PhaseEntry is a single record in a plant's phase history. The entry with
// no End timestamp is the plant's current phase.
type PhaseEntry struct {
	Phase Phase      `json:"phase"`
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
	Note  string     `json:"note,omitempty"`
}

// Open reports whether the entry has no end timestamp yet.
func (e PhaseEntry) Open() bool {
	return e.End == nil
}

// Duration returns the elapsed time covered by the entry, using now for
// the open entry.
func (e PhaseEntry) Duration(now time.Time) time.Duration {
	end := now
	if e.End != nil {
		end = *e.End
	}
	return end.Sub(e.Start)
}

// PhaseHistory is the append-only, time-ordered log of phase transitions.
// Exactly one entry is open at any time.
type PhaseHistory []PhaseEntry

// NewPhaseHistory starts a history with a single open entry, as created
// when a plant is first configured.
func NewPhaseHistory(phase Phase, start time.Time) PhaseHistory {
	return PhaseHistory{{Phase: phase, Start: start}}
}

// Current returns the open entry's phase.
func (h PhaseHistory) Current() (Phase, bool) {
	if len(h) == 0 {
		return "", false
	}
	return h[len(h)-1].Phase, true
}

// ChangePhase closes the open entry at now and appends a new open entry for
// newPhase. It returns the extended history; the receiver is not modified.
// Changing to the phase the plant is already in fails with
// ErrInvalidTransition. Any other ordering is allowed - moving a plant
// backward is a correction, not an error.
func (h PhaseHistory) ChangePhase(newPhase Phase, now time.Time, note string) (PhaseHistory, error) {
	if !newPhase.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, newPhase)
	}
	if current, ok := h.Current(); ok && current == newPhase {
		return nil, fmt.Errorf("%w: already in %s", ErrInvalidTransition, newPhase)
	}

	out := make(PhaseHistory, len(h), len(h)+1)
	copy(out, h)
	if len(out) > 0 {
		closed := out[len(out)-1]
		end := now
		closed.End = &end
		out[len(out)-1] = closed
	}
	out = append(out, PhaseEntry{Phase: newPhase, Start: now, Note: note})
	return out, nil
}

// TimeInPhase sums the elapsed time spent in phase across all entries,
// counting the open entry up to now.
func (h PhaseHistory) TimeInPhase(phase Phase, now time.Time) time.Duration {
	var total time.Duration
	for _, e := range h {
		if e.Phase == phase {
			total += e.Duration(now)
		}
	}
	return total
}

// DaysInPhase returns TimeInPhase in whole days.
func (h PhaseHistory) DaysInPhase(phase Phase, now time.Time) int {
	return int(h.TimeInPhase(phase, now) / (24 * time.Hour))
}

// TotalVegDays sums whole days across the vegetative phase group.
func (h PhaseHistory) TotalVegDays(now time.Time) int {
	var total time.Duration
	for _, e := range h {
		if e.Phase.IsVeg() {
			total += e.Duration(now)
		}
	}
	return int(total / (24 * time.Hour))
}

// TotalFlowerDays sums whole days across the flowering phase group.
func (h PhaseHistory) TotalFlowerDays(now time.Time) int {
	var total time.Duration
	for _, e := range h {
		if e.Phase.IsFlower() {
			total += e.Duration(now)
		}
	}
	return int(total / (24 * time.Hour))
}

// Migrate maps every entry recorded under the deprecated phase taxonomy to
// the current one. It returns a new history; entries with unmappable phase
// names fail with ErrUnknownPhase. Migration renames entries in place and
// never merges adjacent entries that end up with the same phase.
func (h PhaseHistory) Migrate() (PhaseHistory, error) {
	out := make(PhaseHistory, len(h))
	for i, e := range h {
		mapped, err := MigratePhase(e.Phase)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e.Phase = mapped
		out[i] = e
	}
	return out, nil
}
