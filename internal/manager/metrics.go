package manager

import (
	"time"

	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
)

// PlantMetrics is a derived snapshot of one plant, computed from its
// append-only logs at a single instant.
type PlantMetrics struct {
	PlantID     string     `json:"plant_id"`
	Name        string     `json:"name"`
	Strain      string     `json:"strain,omitempty"`
	Growbox     string     `json:"growbox,omitempty"`
	Phase       grow.Phase `json:"phase"`
	PlantedDate time.Time  `json:"planted_date"`

	DaysSincePlanted   int                `json:"days_since_planted"`
	DaysInCurrentPhase int                `json:"days_in_current_phase"`
	DaysInPhase        map[grow.Phase]int `json:"days_in_phase"`
	TotalVegDays       int                `json:"total_veg_days"`
	TotalFlowerDays    int                `json:"total_flower_days"`

	LastWatering      *time.Time `json:"last_watering,omitempty"`
	DaysSinceWatering *int       `json:"days_since_watering,omitempty"`
	WateringStatus    string     `json:"watering_status"`
	TotalSessions     int        `json:"total_watering_sessions"`
	WaterThisWeekML   int        `json:"water_this_week_ml"`
	AvgPerSessionML   float64    `json:"avg_water_per_session_ml"`
	FrequencyDays     *float64   `json:"watering_frequency_days,omitempty"`
	FrequencyPattern  string     `json:"watering_pattern"`
}

// GrowboxMetrics is a derived snapshot of one growbox environment.
type GrowboxMetrics struct {
	GrowboxID string `json:"growbox_id"`
	Name      string `json:"name"`

	Temperature    *float64 `json:"temperature,omitempty"`
	Humidity       *float64 `json:"humidity,omitempty"`
	VPD            *float64 `json:"vpd,omitempty"`
	VPDStatus      string   `json:"vpd_status,omitempty"`
	TargetVPD      float64  `json:"target_vpd"`
	TargetHumidity *float64 `json:"target_humidity,omitempty"`

	Plants []string `json:"plants"`
}

// PlantMetrics computes the derived snapshot for one plant.
func (m *Manager) PlantMetrics(id string) (PlantMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadPlant(id)
	if err != nil {
		return PlantMetrics{}, err
	}
	return m.computePlantMetrics(p), nil
}

func (m *Manager) computePlantMetrics(p grow.Plant) PlantMetrics {
	now := m.opts.Clock()

	pm := PlantMetrics{
		PlantID:          p.ID,
		Name:             p.Name,
		Strain:           p.Strain,
		Growbox:          p.Growbox,
		Phase:            p.CurrentPhase(),
		PlantedDate:      p.PlantedDate,
		DaysSincePlanted: p.DaysSincePlanted(now),
		DaysInPhase:      make(map[grow.Phase]int, len(grow.Phases)),
		TotalVegDays:     p.History.TotalVegDays(now),
		TotalFlowerDays:  p.History.TotalFlowerDays(now),
		TotalSessions:    len(p.Waterings),
		WaterThisWeekML:  p.Waterings.WaterThisWeek(now),
	}

	for _, phase := range grow.Phases {
		pm.DaysInPhase[phase] = p.History.DaysInPhase(phase, now)
	}
	pm.DaysInCurrentPhase = pm.DaysInPhase[pm.Phase]

	if last, ok := p.Waterings.Last(); ok {
		ts := last.Timestamp
		pm.LastWatering = &ts
	}
	if days, ok := p.Waterings.DaysSinceLast(now); ok {
		pm.DaysSinceWatering = &days
	}
	pm.WateringStatus = wateringStatus(pm.DaysSinceWatering)

	if avg, ok := p.Waterings.AvgPerSession(); ok {
		pm.AvgPerSessionML = avg
	}
	if freq, ok := p.Waterings.FrequencyDays(); ok {
		pm.FrequencyDays = &freq
	}
	pm.FrequencyPattern = frequencyPattern(pm.FrequencyDays)

	return pm
}

// GrowboxMetrics computes the derived environment snapshot for one growbox.
func (m *Manager) GrowboxMetrics(id string) (GrowboxMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.loadGrowbox(id)
	if err != nil {
		return GrowboxMetrics{}, err
	}

	gm := GrowboxMetrics{
		GrowboxID: g.ID,
		Name:      g.Name,
		TargetVPD: g.TargetVPD,
		Plants:    []string{},
	}

	if all, err := m.plants.GetAll(); err == nil {
		for pid, p := range all {
			if p.Growbox == g.ID {
				gm.Plants = append(gm.Plants, pid)
			}
		}
	}

	if m.readings == nil {
		return gm, nil
	}

	if g.TemperatureSensor != "" {
		if v, ok := m.readings.Latest(g.TemperatureSensor); ok {
			gm.Temperature = &v
		}
	}
	if g.HumiditySensor != "" {
		if v, ok := m.readings.Latest(g.HumiditySensor); ok {
			gm.Humidity = &v
		}
	}

	// VPD needs both readings; a half-instrumented box reports neither.
	if gm.Temperature != nil && gm.Humidity != nil {
		vpd := grow.VPD(*gm.Temperature, *gm.Humidity)
		gm.VPD = &vpd
		gm.VPDStatus = grow.VPDStatus(vpd)

		target := grow.TargetHumidity(*gm.Temperature, g.TargetVPD)
		gm.TargetHumidity = &target
	}

	return gm, nil
}

// wateringStatus classifies days-since-watering for display.
func wateringStatus(days *int) string {
	switch {
	case days == nil:
		return "Never watered"
	case *days > 5:
		return "Overdue"
	case *days > 3:
		return "Due soon"
	default:
		return "Good"
	}
}

// frequencyPattern classifies the mean watering gap for display.
func frequencyPattern(days *float64) string {
	switch {
	case days == nil:
		return "Not enough data"
	case *days < 1:
		return "Multiple times daily"
	case *days <= 2:
		return "Every 1-2 days"
	case *days <= 4:
		return "Every 3-4 days"
	default:
		return "Weekly or less"
	}
}
