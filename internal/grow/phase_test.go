package grow

import (
	"errors"
	"testing"
)

func TestParsePhase(t *testing.T) {
	for _, p := range Phases {
		got, err := ParsePhase(string(p))
		if err != nil {
			t.Errorf("ParsePhase(%q) unexpected error: %v", p, err)
		}
		if got != p {
			t.Errorf("ParsePhase(%q) = %q", p, got)
		}
	}

	if _, err := ParsePhase("germination"); !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("ParsePhase(germination) error = %v, want ErrUnknownPhase", err)
	}
	if _, err := ParsePhase(""); !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("ParsePhase(\"\") error = %v, want ErrUnknownPhase", err)
	}
}

func TestMigratePhase_LegacyNames(t *testing.T) {
	tests := []struct {
		legacy Phase
		want   Phase
	}{
		{"early_veg", PhaseEarlyVeg},
		{"mid_veg", PhaseMidLateVeg},
		{"late_veg", PhaseMidLateVeg},
		{"early_flower", PhaseEarlyFlower},
		{"mid_flower", PhaseMidLateFlower},
		{"late_flower", PhaseMidLateFlower},
		{"flushing", PhaseFlushing},
		{"done", PhaseDone},
	}

	for _, tt := range tests {
		got, err := MigratePhase(tt.legacy)
		if err != nil {
			t.Errorf("MigratePhase(%q) unexpected error: %v", tt.legacy, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MigratePhase(%q) = %q, want %q", tt.legacy, got, tt.want)
		}
		if !got.Valid() {
			t.Errorf("MigratePhase(%q) = %q is not a current phase", tt.legacy, got)
		}
	}
}

func TestMigratePhase_CurrentNamesPassThrough(t *testing.T) {
	for _, p := range Phases {
		got, err := MigratePhase(p)
		if err != nil {
			t.Errorf("MigratePhase(%q) unexpected error: %v", p, err)
			continue
		}
		if got != p {
			t.Errorf("MigratePhase(%q) = %q, want unchanged", p, got)
		}
	}
}

func TestMigratePhase_Unknown(t *testing.T) {
	if _, err := MigratePhase("seedling"); !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("MigratePhase(seedling) error = %v, want ErrUnknownPhase", err)
	}
}

func TestPhaseGroups(t *testing.T) {
	vegWant := map[Phase]bool{PhaseEarlyVeg: true, PhaseMidLateVeg: true}
	flowerWant := map[Phase]bool{PhaseEarlyFlower: true, PhaseMidLateFlower: true, PhaseFlushing: true}

	for _, p := range Phases {
		if p.IsVeg() != vegWant[p] {
			t.Errorf("%q IsVeg() = %v, want %v", p, p.IsVeg(), vegWant[p])
		}
		if p.IsFlower() != flowerWant[p] {
			t.Errorf("%q IsFlower() = %v, want %v", p, p.IsFlower(), flowerWant[p])
		}
	}
	if PhaseDone.IsVeg() || PhaseDone.IsFlower() {
		t.Error("done should belong to neither group")
	}
}
