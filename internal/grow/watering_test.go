package grow

import (
	"errors"
	"testing"
	"time"
)

func TestWateringAppend_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		volume  int
		max     int
		wantErr bool
	}{
		{"zero", 0, 10000, true},
		{"negative", -100, 10000, true},
		{"min", 1, 10000, false},
		{"typical", 2000, 10000, false},
		{"at_max", 10000, 10000, false},
		{"over_max", 10001, 10000, true},
		{"custom_max_ok", 500, 500, false},
		{"custom_max_exceeded", 501, 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l WateringLog
			out, err := l.Append(tt.volume, t0, "", tt.max)
			if tt.wantErr {
				if !errors.Is(err, ErrVolumeOutOfRange) {
					t.Errorf("error = %v, want ErrVolumeOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Append: %v", err)
			}
			if len(out) != 1 || out[0].VolumeML != tt.volume {
				t.Errorf("appended %+v", out)
			}
		})
	}
}

func TestWateringAppend_DoesNotMutateReceiver(t *testing.T) {
	l, _ := WateringLog{}.Append(100, t0, "", 0)
	l2, _ := l.Append(200, day(1), "", 0)
	if len(l) != 1 {
		t.Errorf("receiver mutated, len = %d", len(l))
	}
	if len(l2) != 2 {
		t.Errorf("result len = %d", len(l2))
	}
}

func TestAvgAndFrequency_Scenario(t *testing.T) {
	// 2000ml at t0, 1500ml two days later.
	var l WateringLog
	l, _ = l.Append(2000, t0, "", 0)
	l, _ = l.Append(1500, day(2), "", 0)

	avg, ok := l.AvgPerSession()
	if !ok || avg != 1750 {
		t.Errorf("avg = %v (ok=%v), want 1750", avg, ok)
	}
	gap, ok := l.Frequency()
	if !ok || gap != 2*24*time.Hour {
		t.Errorf("frequency = %v (ok=%v), want 48h", gap, ok)
	}
	days, ok := l.FrequencyDays()
	if !ok || days != 2 {
		t.Errorf("frequency days = %v (ok=%v), want 2", days, ok)
	}
}

func TestFrequency_Undefined(t *testing.T) {
	var l WateringLog
	if _, ok := l.Frequency(); ok {
		t.Error("empty log should have no frequency")
	}
	l, _ = l.Append(100, t0, "", 0)
	if _, ok := l.Frequency(); ok {
		t.Error("single entry should have no frequency")
	}
}

func TestDaysSinceLast(t *testing.T) {
	var l WateringLog
	if _, ok := l.DaysSinceLast(day(5)); ok {
		t.Error("empty log should report ok=false")
	}

	l, _ = l.Append(300, t0, "", 0)
	l, _ = l.Append(300, day(3), "", 0)
	got, ok := l.DaysSinceLast(day(5))
	if !ok || got != 2 {
		t.Errorf("days since last = %d (ok=%v), want 2", got, ok)
	}
}

func TestWaterThisWeek_TrailingWindow(t *testing.T) {
	var l WateringLog
	l, _ = l.Append(1000, day(0), "", 0) // outside window at day 10
	l, _ = l.Append(500, day(4), "", 0)  // inside
	l, _ = l.Append(250, day(9), "", 0)  // inside

	if got := l.WaterThisWeek(day(10)); got != 750 {
		t.Errorf("water this week = %d, want 750", got)
	}
	if got := l.WaterThisWeek(day(20)); got != 0 {
		t.Errorf("water this week at day 20 = %d, want 0", got)
	}
}
