package stats

// Unit conversions for profiles stored in feet and pounds.
const (
	metersPerFoot = 0.3048
	kgPerPound    = 0.453592
)

// BMI is a body-mass index reading.
type BMI struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// ComputeBMI derives BMI from height in feet and weight in pounds.
// ok is false when either measurement is missing or non-positive.
func ComputeBMI(heightFeet, weightLbs *float64) (BMI, bool) {
	if heightFeet == nil || weightLbs == nil || *heightFeet <= 0 || *weightLbs <= 0 {
		return BMI{}, false
	}
	h := *heightFeet * metersPerFoot
	v := round(*weightLbs*kgPerPound/(h*h), 1)
	return BMI{Value: v, Category: bmiCategory(v)}, true
}

func bmiCategory(v float64) string {
	switch {
	case v < 18.5:
		return "Underweight"
	case v < 25:
		return "Normal"
	case v < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}
