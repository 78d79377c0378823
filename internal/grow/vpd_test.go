package grow

import (
	"math"
	"testing"
)

func TestVPD(t *testing.T) {
	tests := []struct {
		tempC    float64
		humidity float64
		want     float64
	}{
		// At 100% humidity there is no deficit.
		{25, 100, 0},
		// SVP(25C) ~= 3.17 kPa; at 65% RH the deficit is ~1.11 kPa.
		{25, 65, 1.11},
		// SVP(20C) ~= 2.34 kPa; at 50% RH the deficit is ~1.17 kPa.
		{20, 50, 1.17},
	}

	for _, tt := range tests {
		got := VPD(tt.tempC, tt.humidity)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("VPD(%v, %v) = %v, want %v", tt.tempC, tt.humidity, got, tt.want)
		}
	}
}

func TestVPDStatus(t *testing.T) {
	tests := []struct {
		vpd  float64
		want string
	}{
		{0.2, "Too Low"},
		{0.6, "Good"},
		{1.0, "Optimal"},
		{1.4, "Good"},
		{1.8, "Too High"},
	}
	for _, tt := range tests {
		if got := VPDStatus(tt.vpd); got != tt.want {
			t.Errorf("VPDStatus(%v) = %q, want %q", tt.vpd, got, tt.want)
		}
	}
}

func TestTargetHumidity_Clamped(t *testing.T) {
	// A huge target VPD drives the computed humidity below the clamp floor.
	if got := TargetHumidity(20, 5.0); got != 30 {
		t.Errorf("TargetHumidity(20, 5.0) = %v, want clamp to 30", got)
	}
	// A zero target VPD means saturation; clamp caps at 90.
	if got := TargetHumidity(20, 0); got != 90 {
		t.Errorf("TargetHumidity(20, 0) = %v, want clamp to 90", got)
	}
	// Round-trip: humidity derived for a target should yield that VPD.
	h := TargetHumidity(25, 1.1)
	if got := VPD(25, h); math.Abs(got-1.1) > 0.05 {
		t.Errorf("VPD(25, TargetHumidity(25, 1.1)) = %v", got)
	}
}
