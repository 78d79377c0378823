package grow

// DefaultTargetVPD is used when a growbox is created without one.
const DefaultTargetVPD = 1.0

// Growbox is a physical growing environment housing one or more plants.
// Sensor fields reference external readings by lookup key only - the box
// never owns the sensors.
type Growbox struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	TemperatureSensor string  `json:"temperature_sensor,omitempty"`
	HumiditySensor    string  `json:"humidity_sensor,omitempty"`
	TargetVPD         float64 `json:"target_vpd"`
}

// NewGrowbox creates a growbox with the default target VPD applied when
// none is given.
func NewGrowbox(id, name, tempSensor, humiditySensor string, targetVPD float64) Growbox {
	if targetVPD <= 0 {
		targetVPD = DefaultTargetVPD
	}
	return Growbox{
		ID:                id,
		Name:              name,
		TemperatureSensor: tempSensor,
		HumiditySensor:    humiditySensor,
		TargetVPD:         targetVPD,
	}
}
