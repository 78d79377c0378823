package grow

import (
	"fmt"
	"time"
)

// DefaultMaxVolumeML bounds a single watering when no limit is configured.
const DefaultMaxVolumeML = 10000

// WateringEntry is a single watering event. Entries only append, never
// mutate or delete.
type WateringEntry struct {
	Timestamp time.Time `json:"timestamp"`
	VolumeML  int       `json:"volume_ml"`
	Note      string    `json:"note,omitempty"`
}

// WateringLog is the append-only, time-ordered log of watering events.
type WateringLog []WateringEntry

// Append validates volumeML against [1, maxML] and returns the extended
// log. The receiver is not modified. A maxML of zero falls back to
// DefaultMaxVolumeML.
func (l WateringLog) Append(volumeML int, now time.Time, note string, maxML int) (WateringLog, error) {
	if maxML <= 0 {
		maxML = DefaultMaxVolumeML
	}
	if volumeML < 1 || volumeML > maxML {
		return nil, fmt.Errorf("%w: %d ml (allowed 1-%d)", ErrVolumeOutOfRange, volumeML, maxML)
	}

	out := make(WateringLog, len(l), len(l)+1)
	copy(out, l)
	out = append(out, WateringEntry{Timestamp: now, VolumeML: volumeML, Note: note})
	return out, nil
}

// Last returns the most recent entry.
func (l WateringLog) Last() (WateringEntry, bool) {
	if len(l) == 0 {
		return WateringEntry{}, false
	}
	return l[len(l)-1], true
}

// DaysSinceLast returns whole days since the latest entry. ok is false
// when the log is empty.
func (l WateringLog) DaysSinceLast(now time.Time) (days int, ok bool) {
	last, ok := l.Last()
	if !ok {
		return 0, false
	}
	return int(now.Sub(last.Timestamp) / (24 * time.Hour)), true
}

// WaterThisWeek sums volumes for entries within the trailing 7-day window
// ending at now.
func (l WateringLog) WaterThisWeek(now time.Time) int {
	cutoff := now.Add(-7 * 24 * time.Hour)
	total := 0
	for _, e := range l {
		if !e.Timestamp.Before(cutoff) && !e.Timestamp.After(now) {
			total += e.VolumeML
		}
	}
	return total
}

// AvgPerSession returns the arithmetic mean of all volumes. ok is false
// when the log is empty.
func (l WateringLog) AvgPerSession() (avg float64, ok bool) {
	if len(l) == 0 {
		return 0, false
	}
	total := 0
	for _, e := range l {
		total += e.VolumeML
	}
	return float64(total) / float64(len(l)), true
}

// Frequency returns the mean elapsed time between consecutive entries.
// ok is false with fewer than two entries.
func (l WateringLog) Frequency() (gap time.Duration, ok bool) {
	if len(l) < 2 {
		return 0, false
	}
	span := l[len(l)-1].Timestamp.Sub(l[0].Timestamp)
	return span / time.Duration(len(l)-1), true
}

// FrequencyDays returns Frequency expressed in days.
func (l WateringLog) FrequencyDays() (days float64, ok bool) {
	gap, ok := l.Frequency()
	if !ok {
		return 0, false
	}
	return gap.Hours() / 24, true
}
