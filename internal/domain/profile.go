package domain

// UserProfile is the structured profile captured when a plan is requested.
// Physical attributes are optional; zero values mean "not provided".
type UserProfile struct {
	Age          int     `bson:"age,omitempty" json:"age,omitempty"`
	Sex          string  `bson:"sex,omitempty" json:"sex,omitempty"`
	HeightCm     float64 `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	WeightKg     float64 `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	FitnessLevel string  `bson:"fitnessLevel,omitempty" json:"fitnessLevel,omitempty"`

	Goals       []string `bson:"goals,omitempty" json:"goals,omitempty"`
	Constraints []string `bson:"constraints,omitempty" json:"constraints,omitempty"` // injuries, limitations
	Equipment   []string `bson:"equipment,omitempty" json:"equipment,omitempty"`

	// Nutrition-specific
	DietaryRestrictions []string `bson:"dietaryRestrictions,omitempty" json:"dietaryRestrictions,omitempty"`
	Allergies           []string `bson:"allergies,omitempty" json:"allergies,omitempty"`
	DailyCalorieTarget  int      `bson:"dailyCalorieTarget,omitempty" json:"dailyCalorieTarget,omitempty"`
}

// HasEquipment reports whether the profile lists anything beyond bodyweight.
func (p UserProfile) HasEquipment() bool {
	for _, e := range p.Equipment {
		if e != "" && e != "none" && e != "bodyweight" {
			return true
		}
	}
	return false
}
