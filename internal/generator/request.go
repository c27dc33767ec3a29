package generator

import (
	"alcyxob/wellness-app/internal/domain"
)

// Request is everything the remote service needs to produce one day. It is
// sent as JSON in the user message; the wording of the instructions lives in
// the system prompt.
type Request struct {
	Kind          domain.PlanKind     `json:"kind"`
	DayNumber     int                 `json:"dayNumber"`
	TotalDays     int                 `json:"totalDays"`
	DayType       domain.DayType      `json:"dayType"`
	DayOfWeek     string              `json:"dayOfWeek"`
	DayInWeek     int                 `json:"dayInWeek"`
	WeekOfProgram int                 `json:"weekOfProgram"`
	Difficulty    domain.Difficulty   `json:"difficulty"`
	Category      string              `json:"category,omitempty"`
	Profile       domain.UserProfile  `json:"profile"`
	Settings      domain.PlanSettings `json:"settings"`
	MemoryContext string              `json:"memoryContext"`
}

// Position fills the calendar fields of r from the plan.
func (r *Request) Position(plan *domain.Plan) {
	r.DayInWeek = (r.DayNumber-1)%7 + 1
	r.WeekOfProgram = (r.DayNumber-1)/7 + 1
	if !plan.StartDate.IsZero() {
		r.DayOfWeek = plan.DayDate(r.DayNumber).Weekday().String()
	}
}

const workoutSchema = `{"title": string, "description": string, "muscleGroups": [string], "workoutType": string,
"warmupDuration": minutes, "workoutDuration": minutes, "cooldownDuration": minutes,
"exercises": [{"name": string, "category": "warmup"|"main"|"cooldown", "muscleGroups": [string],
"equipment": [string], "sets": int, "reps": string, "weight": string, "restTime": seconds,
"instructions": string, "formCues": [string], "modifications": {"easier": [string], "harder": [string]}}]}`

const nutritionSchema = `{"title": string, "description": string, "totalCalories": int,
"meals": [{"type": "breakfast"|"lunch"|"dinner"|"snack", "name": string, "ingredients": [string],
"instructions": [string], "prepMinutes": int,
"nutrition": {"calories": int, "protein": g, "carbs": g, "fats": g, "fiber": g, "sugar": g, "sodium": mg}}]}`

func systemPrompt(kind domain.PlanKind) string {
	if kind == domain.PlanKindNutrition {
		return "You create one day of a personalised nutrition challenge. " +
			"Respect dietary restrictions and allergies, stay near the calorie target, and follow the memory context. " +
			"Reply with a single JSON object and nothing else, matching: " + nutritionSchema
	}
	return "You create one day of a personalised exercise program. " +
		"Only use the listed equipment, respect constraints, and follow the memory context. " +
		"Reply with a single JSON object and nothing else, matching: " + workoutSchema
}
