package technology

import "math"

// powerScaleThreshold is the magnitude above which power values are taken to
// be kilowatts. Utility-scale turbines top out well below 100 MW, while even
// small kW-denominated curves exceed 100.
const powerScaleThreshold = 100

// CurvePoint is one (wind speed, power) sample of a turbine power curve,
// with power normalized to megawatts.
type CurvePoint struct {
	Speed   float64 `json:"speed"`
	PowerMW float64 `json:"power_mw"`
}

// InferPowerScale infers a single power unit scale for a whole turbine
// definition from the rated-power field ("P") and every numeric entry of the
// power-curve array ("POW"). It returns 0.001 (kW to MW) when the maximum
// magnitude exceeds the threshold, and 1.0 otherwise, including when no
// numeric values are found at all.
//
// The scale is per definition, not per point: mixed-unit curves are scaled
// uniformly.
func InferPowerScale(def Definition) float64 {
	var values []float64

	if p, ok := def.floatField("P"); ok {
		values = append(values, math.Abs(p))
	}
	if curve, ok := def.listField("POW"); ok {
		for _, item := range curve {
			if n, ok := toFloat(item); ok {
				values = append(values, math.Abs(n))
			}
		}
	}

	if len(values) == 0 {
		return 1.0
	}
	maxValue := values[0]
	for _, v := range values[1:] {
		if v > maxValue {
			maxValue = v
		}
	}
	if maxValue > powerScaleThreshold {
		return 0.001
	}
	return 1.0
}

// ToCurvePoints zips the speed array ("V") with the power array ("POW"),
// applying the inferred scale. Pairs where either side fails numeric
// coercion are silently dropped; input order is preserved.
func ToCurvePoints(def Definition) []CurvePoint {
	speeds, okS := def.listField("V")
	powers, okP := def.listField("POW")
	if !okS || !okP {
		return nil
	}

	scale := InferPowerScale(def)
	n := len(speeds)
	if len(powers) < n {
		n = len(powers)
	}

	points := make([]CurvePoint, 0, n)
	for i := 0; i < n; i++ {
		speed, okSpeed := toFloat(speeds[i])
		power, okPower := toFloat(powers[i])
		if !okSpeed || !okPower {
			continue
		}
		points = append(points, CurvePoint{Speed: speed, PowerMW: power * scale})
	}
	return points
}

// RatedPowerMW returns the turbine's rated power in MW: the explicit "P"
// field (scaled) when present, else the maximum power across the curve.
// The second return is false when neither source is available.
func RatedPowerMW(def Definition) (float64, bool) {
	if p, ok := def.floatField("P"); ok {
		return p * InferPowerScale(def), true
	}

	points := ToCurvePoints(def)
	if len(points) == 0 {
		return 0, false
	}
	maxPower := points[0].PowerMW
	for _, pt := range points[1:] {
		if pt.PowerMW > maxPower {
			maxPower = pt.PowerMW
		}
	}
	return maxPower, true
}

// TurbineMetricsFromFile reads rated power (MW) and hub height (m) from a
// definition file for catalog listings. Unreadable or malformed files yield
// nils rather than errors.
func TurbineMetricsFromFile(path string) (ratedPower, hubHeight *float64) {
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, nil
	}
	if rated, ok := RatedPowerMW(def); ok {
		ratedPower = &rated
	}
	if hub, ok := def.floatField("HUB_HEIGHT"); ok {
		hubHeight = &hub
	}
	return ratedPower, hubHeight
}
