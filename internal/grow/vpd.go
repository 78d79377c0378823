package grow

import "math"

// VPD returns the vapor pressure deficit in kPa for the given air
// temperature (Celsius) and relative humidity (percent), rounded to two
// decimals. Saturated vapor pressure follows the Magnus formula.
func VPD(tempC, humidity float64) float64 {
	svp := 0.6108 * math.Exp((17.27*tempC)/(tempC+237.3))
	vpd := svp * (1 - humidity/100)
	return math.Round(vpd*100) / 100
}

// VPDStatus classifies a VPD reading for display.
func VPDStatus(vpd float64) string {
	switch {
	case vpd < 0.5:
		return "Too Low"
	case vpd > 1.5:
		return "Too High"
	case vpd >= 0.8 && vpd <= 1.2:
		return "Optimal"
	default:
		return "Good"
	}
}

// TargetHumidity returns the relative humidity (percent) that would yield
// targetVPD at the given temperature, clamped to [30, 90] and rounded to
// one decimal.
func TargetHumidity(tempC, targetVPD float64) float64 {
	svp := 0.6108 * math.Exp((17.27*tempC)/(tempC+237.3))
	target := (1 - targetVPD/svp) * 100
	target = math.Max(30, math.Min(90, target))
	return math.Round(target*10) / 10
}
