package grow

import "time"

// Note is a free-form dated remark attached to a plant.
type Note struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Plant is the full persisted record for one plant. It is stored and
// rewritten as a whole blob; the logs inside it only ever grow.
type Plant struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Strain               string       `json:"strain,omitempty"`
	Growbox              string       `json:"growbox,omitempty"` // lookup key, non-owning
	PlantedDate          time.Time    `json:"planted_date"`
	DefaultWaterVolumeML int          `json:"default_water_volume_ml"`
	History              PhaseHistory `json:"history"`
	Waterings            WateringLog  `json:"waterings"`
	Notes                []Note       `json:"notes,omitempty"`
}

// NewPlant creates a plant with one initial open phase-history entry
// starting at the planted date.
func NewPlant(id, name, strain, growbox string, planted time.Time, phase Phase, defaultVolumeML int) Plant {
	return Plant{
		ID:                   id,
		Name:                 name,
		Strain:               strain,
		Growbox:              growbox,
		PlantedDate:          planted,
		DefaultWaterVolumeML: defaultVolumeML,
		History:              NewPhaseHistory(phase, planted),
	}
}

// CurrentPhase returns the plant's open phase-history entry's phase.
func (p Plant) CurrentPhase() Phase {
	phase, _ := p.History.Current()
	return phase
}

// DaysSincePlanted returns whole days since the planted date.
func (p Plant) DaysSincePlanted(now time.Time) int {
	return int(now.Sub(p.PlantedDate) / (24 * time.Hour))
}
