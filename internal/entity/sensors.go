package entity

import (
	"fmt"
	"sync"

	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
)

// sensor is a derived-metric entity backed by a snapshot function.
type sensor struct {
	id      string
	compute func() (any, error)

	mu     sync.Mutex
	value  any
	cached bool
}

func (s *sensor) ID() string { return s.id }

func (s *sensor) Update() error {
	v, err := s.compute()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.value = v
	s.cached = true
	s.mu.Unlock()
	return nil
}

func (s *sensor) Value() (any, error) {
	s.mu.Lock()
	cached := s.cached
	v := s.value
	s.mu.Unlock()

	if cached {
		return v, nil
	}
	if err := s.Update(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

// plantSensorIDs returns the entity IDs registered for one plant.
func plantSensorIDs(plantID string) []string {
	ids := []string{
		fmt.Sprintf("plant_%s_days_since_planted", plantID),
		fmt.Sprintf("plant_%s_days_in_current_phase", plantID),
		fmt.Sprintf("plant_%s_total_veg_days", plantID),
		fmt.Sprintf("plant_%s_total_flower_days", plantID),
		fmt.Sprintf("plant_%s_last_watering", plantID),
		fmt.Sprintf("plant_%s_days_since_watering", plantID),
		fmt.Sprintf("plant_%s_water_this_week", plantID),
		fmt.Sprintf("plant_%s_avg_water_per_session", plantID),
		fmt.Sprintf("plant_%s_watering_frequency", plantID),
	}
	for _, phase := range grow.Phases {
		ids = append(ids, fmt.Sprintf("plant_%s_days_in_%s", plantID, phase))
	}
	return ids
}

// RegisterPlant registers the derived sensor set for one plant.
func RegisterPlant(reg *Registry, mgr *manager.Manager, plantID string) {
	metric := func(pick func(manager.PlantMetrics) any) func() (any, error) {
		return func() (any, error) {
			pm, err := mgr.PlantMetrics(plantID)
			if err != nil {
				return nil, err
			}
			return pick(pm), nil
		}
	}

	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_days_since_planted", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.DaysSincePlanted }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_days_in_current_phase", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.DaysInCurrentPhase }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_total_veg_days", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.TotalVegDays }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_total_flower_days", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.TotalFlowerDays }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_last_watering", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.LastWatering }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_days_since_watering", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.DaysSinceWatering }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_water_this_week", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.WaterThisWeekML }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_avg_water_per_session", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.AvgPerSessionML }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("plant_%s_watering_frequency", plantID),
		compute: metric(func(pm manager.PlantMetrics) any { return pm.FrequencyDays }),
	})

	for _, phase := range grow.Phases {
		phase := phase
		reg.Register(&sensor{
			id:      fmt.Sprintf("plant_%s_days_in_%s", plantID, phase),
			compute: metric(func(pm manager.PlantMetrics) any { return pm.DaysInPhase[phase] }),
		})
	}
}

// growboxSensorIDs returns the entity IDs registered for one growbox.
func growboxSensorIDs(growboxID string) []string {
	return []string{
		fmt.Sprintf("growbox_%s_temperature", growboxID),
		fmt.Sprintf("growbox_%s_humidity", growboxID),
		fmt.Sprintf("growbox_%s_vpd", growboxID),
		fmt.Sprintf("growbox_%s_target_humidity", growboxID),
	}
}

// RegisterGrowbox registers the derived environment sensor set for one
// growbox.
func RegisterGrowbox(reg *Registry, mgr *manager.Manager, growboxID string) {
	metric := func(pick func(manager.GrowboxMetrics) any) func() (any, error) {
		return func() (any, error) {
			gm, err := mgr.GrowboxMetrics(growboxID)
			if err != nil {
				return nil, err
			}
			return pick(gm), nil
		}
	}

	reg.Register(&sensor{
		id:      fmt.Sprintf("growbox_%s_temperature", growboxID),
		compute: metric(func(gm manager.GrowboxMetrics) any { return gm.Temperature }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("growbox_%s_humidity", growboxID),
		compute: metric(func(gm manager.GrowboxMetrics) any { return gm.Humidity }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("growbox_%s_vpd", growboxID),
		compute: metric(func(gm manager.GrowboxMetrics) any { return gm.VPD }),
	})
	reg.Register(&sensor{
		id:      fmt.Sprintf("growbox_%s_target_humidity", growboxID),
		compute: metric(func(gm manager.GrowboxMetrics) any { return gm.TargetHumidity }),
	})
}

// DeregisterPlant removes one plant's sensor set.
func DeregisterPlant(reg *Registry, plantID string) {
	for _, id := range plantSensorIDs(plantID) {
		reg.Deregister(id)
	}
}

// DeregisterGrowbox removes one growbox's sensor set.
func DeregisterGrowbox(reg *Registry, growboxID string) {
	for _, id := range growboxSensorIDs(growboxID) {
		reg.Deregister(id)
	}
}

// Sync rebuilds the registry contents from the manager's current plants
// and growboxes, adding missing sensor sets and dropping orphaned ones.
func Sync(reg *Registry, mgr *manager.Manager) error {
	plants, err := mgr.Plants()
	if err != nil {
		return err
	}
	growboxes, err := mgr.Growboxes()
	if err != nil {
		return err
	}

	wanted := make(map[string]bool)
	for id := range plants {
		for _, sid := range plantSensorIDs(id) {
			wanted[sid] = true
		}
	}
	for id := range growboxes {
		for _, sid := range growboxSensorIDs(id) {
			wanted[sid] = true
		}
	}

	for _, sid := range reg.IDs() {
		if !wanted[sid] {
			reg.Deregister(sid)
		}
	}
	for id := range plants {
		if _, ok := reg.Get(fmt.Sprintf("plant_%s_days_since_planted", id)); !ok {
			RegisterPlant(reg, mgr, id)
		}
	}
	for id := range growboxes {
		if _, ok := reg.Get(fmt.Sprintf("growbox_%s_vpd", id)); !ok {
			RegisterGrowbox(reg, mgr, id)
		}
	}
	return nil
}
