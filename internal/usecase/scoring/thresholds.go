package scoring

// GateThresholds are the per-context gate tiers. A value at or below a
// "pass" tier passes; at or below a "soft" tier costs the soft penalty.
type GateThresholds struct {
	QuickMinutesPass     int
	QuickMinutesSoft     int
	QuickIngredientsPass int
	QuickIngredientsSoft int

	BeginnerStepsPass int
	BeginnerStepsSoft int

	HealthCaloriesExcellent float64
	HealthCaloriesGood      float64
	HealthCaloriesSoft      float64

	EventVisualPass float64
}

// DefaultGateThresholds returns the production tiers.
func DefaultGateThresholds() GateThresholds {
	return GateThresholds{
		QuickMinutesPass:     20,
		QuickMinutesSoft:     30,
		QuickIngredientsPass: 9,
		QuickIngredientsSoft: 12,

		BeginnerStepsPass: 6,
		BeginnerStepsSoft: 9,

		HealthCaloriesExcellent: 200,
		HealthCaloriesGood:      350,
		HealthCaloriesSoft:      500,

		EventVisualPass: 0.5,
	}
}
