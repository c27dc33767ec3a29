// internal/domain/content.go
package domain

// Exercise categories allowed inside a workout.
const (
	CategoryWarmup   = "warmup"
	CategoryMain     = "main"
	CategoryCooldown = "cooldown"
)

// DayContent is the structured payload of a day. Exactly one of the
// pointers is set, matching the plan kind; rest days may carry neither.
type DayContent struct {
	Workout   *WorkoutContent   `bson:"workout,omitempty" json:"workout,omitempty"`
	Nutrition *NutritionContent `bson:"nutrition,omitempty" json:"nutrition,omitempty"`
}

// Title returns a short human label for the content.
func (c DayContent) Title() string {
	switch {
	case c.Workout != nil:
		return c.Workout.Title
	case c.Nutrition != nil:
		return c.Nutrition.Title
	}
	return ""
}

// ItemNames returns the ordered names of the exercises or meals.
func (c DayContent) ItemNames() []string {
	var names []string
	if c.Workout != nil {
		for _, e := range c.Workout.Exercises {
			names = append(names, e.Name)
		}
	}
	if c.Nutrition != nil {
		for _, m := range c.Nutrition.Meals {
			names = append(names, m.Name)
		}
	}
	return names
}

// ItemCount returns the number of trackable sub-items.
func (c DayContent) ItemCount() int {
	return len(c.ItemNames())
}

// Focus returns the muscle groups of a workout or the meal types of a menu.
func (c DayContent) Focus() []string {
	if c.Workout != nil {
		return c.Workout.MuscleGroups
	}
	if c.Nutrition != nil {
		out := make([]string, 0, len(c.Nutrition.Meals))
		for _, m := range c.Nutrition.Meals {
			out = append(out, m.Type)
		}
		return out
	}
	return nil
}

// WorkoutContent is the exercise-program payload of a day.
type WorkoutContent struct {
	Title            string     `bson:"title" json:"title"`
	Description      string     `bson:"description,omitempty" json:"description,omitempty"`
	MuscleGroups     []string   `bson:"muscleGroups" json:"muscleGroups"`
	WorkoutType      string     `bson:"workoutType" json:"workoutType"` // e.g. "strength", "cardio", "mobility"
	WarmupDuration   int        `bson:"warmupDuration" json:"warmupDuration"`     // minutes
	WorkoutDuration  int        `bson:"workoutDuration" json:"workoutDuration"`   // minutes
	CooldownDuration int        `bson:"cooldownDuration" json:"cooldownDuration"` // minutes
	Exercises        []Exercise `bson:"exercises" json:"exercises"`
}

// TotalMinutes sums the three phases of the session.
func (w *WorkoutContent) TotalMinutes() int {
	return w.WarmupDuration + w.WorkoutDuration + w.CooldownDuration
}

// Exercise is one ordered item of a workout.
type Exercise struct {
	Name          string                `bson:"name" json:"name"`
	Category      string                `bson:"category" json:"category"` // warmup | main | cooldown
	MuscleGroups  []string              `bson:"muscleGroups" json:"muscleGroups"`
	Equipment     []string              `bson:"equipment" json:"equipment"`
	Sets          int                   `bson:"sets" json:"sets"`
	Reps          string                `bson:"reps" json:"reps"` // "12", "8-10", "30s"
	Weight        string                `bson:"weight,omitempty" json:"weight,omitempty"`
	RestTime      int                   `bson:"restTime" json:"restTime"` // seconds
	Instructions  string                `bson:"instructions" json:"instructions"`
	FormCues      []string              `bson:"formCues" json:"formCues"`
	Modifications ExerciseModifications `bson:"modifications" json:"modifications"`
}

// ExerciseModifications lists regressions and progressions for an exercise.
type ExerciseModifications struct {
	Easier []string `bson:"easier" json:"easier"`
	Harder []string `bson:"harder" json:"harder"`
}

// NutritionContent is the nutrition-challenge payload of a day.
type NutritionContent struct {
	Title         string `bson:"title" json:"title"`
	Description   string `bson:"description,omitempty" json:"description,omitempty"`
	TotalCalories int    `bson:"totalCalories" json:"totalCalories"`
	Meals         []Meal `bson:"meals" json:"meals"`
}

// Meal is one ordered item of a meal plan.
type Meal struct {
	Type         string         `bson:"type" json:"type"` // breakfast | lunch | dinner | snack
	Name         string         `bson:"name" json:"name"`
	Ingredients  []string       `bson:"ingredients" json:"ingredients"`
	Instructions []string       `bson:"instructions" json:"instructions"`
	PrepMinutes  int            `bson:"prepMinutes,omitempty" json:"prepMinutes,omitempty"`
	Nutrition    NutritionFacts `bson:"nutrition" json:"nutrition"`
}

// NutritionFacts per meal. Macros in grams, sodium in milligrams.
type NutritionFacts struct {
	Calories int     `bson:"calories" json:"calories"`
	Protein  float64 `bson:"protein" json:"protein"`
	Carbs    float64 `bson:"carbs" json:"carbs"`
	Fats     float64 `bson:"fats" json:"fats"`
	Fiber    float64 `bson:"fiber,omitempty" json:"fiber,omitempty"`
	Sugar    float64 `bson:"sugar,omitempty" json:"sugar,omitempty"`
	Sodium   float64 `bson:"sodium,omitempty" json:"sodium,omitempty"`
}
