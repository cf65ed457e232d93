package mannequin

import "math"

const (
	cmPerInch = 2.54
	kgPerLb   = 0.45359237

	minFeet   = 3
	maxFeet   = 7
	maxInches = 11
	minPounds = 60
	maxPounds = 400
)

// Imperial holds body measurements as entered in the try-on controls.
type Imperial struct {
	Feet   float64 `json:"heightFeet"`
	Inches float64 `json:"heightInches"`
	Pounds float64 `json:"weightLbs"`
}

// DefaultImperial returns 5 ft 7 in and 154 lb.
func DefaultImperial() Imperial {
	return Imperial{Feet: 5, Inches: 7, Pounds: 154}
}

// ClampImperial limits feet to [3, 7], inches to [0, 11] and pounds to [60, 400].
func ClampImperial(m Imperial) Imperial {
	return Imperial{
		Feet:   clamp(m.Feet, minFeet, maxFeet),
		Inches: clamp(m.Inches, 0, maxInches),
		Pounds: clamp(m.Pounds, minPounds, maxPounds),
	}
}

// ToMetric converts to centimetres and kilograms. No clamping is applied.
func ToMetric(m Imperial) (heightCm, weightKg float64) {
	return (m.Feet*12 + m.Inches) * cmPerInch, m.Pounds * kgPerLb
}

func clamp(value, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, value))
}
