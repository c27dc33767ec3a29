package generator

import (
	"alcyxob/wellness-app/internal/domain"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StripFences returns the JSON object inside raw, dropping markdown code
// fences and any prose around the outermost braces.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		// drop the language tag line, e.g. ```json
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// number accepts 3, 3.5, "3" and "3.5". Anything else decodes as zero.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "gmkcalsin "))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*n = number(f)
		} else {
			*n = 0
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		// booleans, objects and arrays
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

func (n number) toInt() int { return int(math.Round(float64(n))) }

// text accepts a string or a number.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
		return nil
	}
	*t = text(string(b))
	return nil
}

// list accepts an array of strings or a single string.
type list []string

func (l *list) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = list{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*l = list{}
		} else {
			*l = list{s}
		}
		return nil
	}
	var items []text
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(list, 0, len(items))
	for _, it := range items {
		if it != "" {
			out = append(out, string(it))
		}
	}
	*l = out
	return nil
}

func (l list) strings() []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

type rawWorkout struct {
	Title            text          `json:"title"`
	Description      text          `json:"description"`
	MuscleGroups     list          `json:"muscleGroups"`
	WorkoutType      text          `json:"workoutType"`
	WarmupDuration   number        `json:"warmupDuration"`
	WorkoutDuration  number        `json:"workoutDuration"`
	CooldownDuration number        `json:"cooldownDuration"`
	Exercises        []rawExercise `json:"exercises"`
}

type rawExercise struct {
	Name          text   `json:"name"`
	Category      text   `json:"category"`
	MuscleGroups  list   `json:"muscleGroups"`
	Equipment     list   `json:"equipment"`
	Sets          number `json:"sets"`
	Reps          text   `json:"reps"`
	Weight        text   `json:"weight"`
	RestTime      number `json:"restTime"`
	Instructions  text   `json:"instructions"`
	FormCues      list   `json:"formCues"`
	Modifications struct {
		Easier list `json:"easier"`
		Harder list `json:"harder"`
	} `json:"modifications"`
}

// Workout defaults applied when the response omits a field.
const (
	defaultSets          = 3
	defaultReps          = "10"
	defaultRestSeconds   = 60
	defaultWarmupMinutes = 5
	defaultCooldownMins  = 5
	defaultWorkoutMins   = 20
)

func decode(raw string, into any) error {
	body := StripFences(raw)
	if body == "" {
		return &SchemaError{Reason: "empty response"}
	}
	if err := json.Unmarshal([]byte(body), into); err != nil {
		return &SchemaError{Reason: "is not valid JSON", Err: err}
	}
	return nil
}

// ParseWorkout decodes a workout day. Optional fields get defaults; a payload
// without at least one named exercise is rejected.
func ParseWorkout(raw string) (*domain.WorkoutContent, error) {
	var rw rawWorkout
	if err := decode(raw, &rw); err != nil {
		return nil, err
	}

	w := &domain.WorkoutContent{
		Title:            string(rw.Title),
		Description:      string(rw.Description),
		MuscleGroups:     rw.MuscleGroups.strings(),
		WorkoutType:      string(rw.WorkoutType),
		WarmupDuration:   positiveOr(rw.WarmupDuration.toInt(), defaultWarmupMinutes),
		WorkoutDuration:  positiveOr(rw.WorkoutDuration.toInt(), defaultWorkoutMins),
		CooldownDuration: positiveOr(rw.CooldownDuration.toInt(), defaultCooldownMins),
		Exercises:        make([]domain.Exercise, 0, len(rw.Exercises)),
	}
	if w.Title == "" {
		w.Title = "Workout"
	}
	if w.WorkoutType == "" {
		w.WorkoutType = "strength"
	}

	for i, re := range rw.Exercises {
		if re.Name == "" {
			return nil, &SchemaError{Field: fmt.Sprintf("exercises[%d].name", i), Reason: "is required"}
		}
		e := domain.Exercise{
			Name:         string(re.Name),
			Category:     category(string(re.Category), i, len(rw.Exercises)),
			MuscleGroups: re.MuscleGroups.strings(),
			Equipment:    re.Equipment.strings(),
			Sets:         positiveOr(re.Sets.toInt(), defaultSets),
			Reps:         string(re.Reps),
			Weight:       string(re.Weight),
			RestTime:     positiveOr(re.RestTime.toInt(), defaultRestSeconds),
			Instructions: string(re.Instructions),
			FormCues:     re.FormCues.strings(),
			Modifications: domain.ExerciseModifications{
				Easier: re.Modifications.Easier.strings(),
				Harder: re.Modifications.Harder.strings(),
			},
		}
		if e.Reps == "" {
			e.Reps = defaultReps
		}
		w.Exercises = append(w.Exercises, e)
	}
	if len(w.Exercises) == 0 {
		return nil, &SchemaError{Field: "exercises", Reason: "must not be empty"}
	}
	return w, nil
}

// category normalizes free-form categories to warmup, main or cooldown.
func category(raw string, idx, total int) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(c, "warm"):
		return domain.CategoryWarmup
	case strings.Contains(c, "cool"), strings.Contains(c, "stretch"):
		return domain.CategoryCooldown
	case c == "":
		if total >= 3 && idx == 0 {
			return domain.CategoryWarmup
		}
		if total >= 3 && idx == total-1 {
			return domain.CategoryCooldown
		}
	}
	return domain.CategoryMain
}

type rawNutrition struct {
	Title         text      `json:"title"`
	Description   text      `json:"description"`
	TotalCalories number    `json:"totalCalories"`
	Meals         []rawMeal `json:"meals"`
}

type rawMeal struct {
	Type         text   `json:"type"`
	Name         text   `json:"name"`
	Ingredients  list   `json:"ingredients"`
	Instructions list   `json:"instructions"`
	PrepMinutes  number `json:"prepMinutes"`
	Nutrition    struct {
		Calories number `json:"calories"`
		Protein  number `json:"protein"`
		Carbs    number `json:"carbs"`
		Fats     number `json:"fats"`
		Fiber    number `json:"fiber"`
		Sugar    number `json:"sugar"`
		Sodium   number `json:"sodium"`
	} `json:"nutrition"`
}

var mealOrder = []string{"breakfast", "lunch", "dinner", "snack"}

// ParseNutrition decodes a meal-plan day. Meals without a type get one from
// their position; a missing total is summed from the meals.
func ParseNutrition(raw string) (*domain.NutritionContent, error) {
	var rn rawNutrition
	if err := decode(raw, &rn); err != nil {
		return nil, err
	}

	n := &domain.NutritionContent{
		Title:         string(rn.Title),
		Description:   string(rn.Description),
		TotalCalories: rn.TotalCalories.toInt(),
		Meals:         make([]domain.Meal, 0, len(rn.Meals)),
	}
	if n.Title == "" {
		n.Title = "Meal plan"
	}

	sum := 0
	for i, rm := range rn.Meals {
		if rm.Name == "" {
			return nil, &SchemaError{Field: fmt.Sprintf("meals[%d].name", i), Reason: "is required"}
		}
		m := domain.Meal{
			Type:         strings.ToLower(string(rm.Type)),
			Name:         string(rm.Name),
			Ingredients:  rm.Ingredients.strings(),
			Instructions: rm.Instructions.strings(),
			PrepMinutes:  rm.PrepMinutes.toInt(),
			Nutrition: domain.NutritionFacts{
				Calories: rm.Nutrition.Calories.toInt(),
				Protein:  float64(rm.Nutrition.Protein),
				Carbs:    float64(rm.Nutrition.Carbs),
				Fats:     float64(rm.Nutrition.Fats),
				Fiber:    float64(rm.Nutrition.Fiber),
				Sugar:    float64(rm.Nutrition.Sugar),
				Sodium:   float64(rm.Nutrition.Sodium),
			},
		}
		if m.Type == "" {
			m.Type = mealOrder[min(i, len(mealOrder)-1)]
		}
		if m.Nutrition.Calories < 0 {
			return nil, &SchemaError{Field: fmt.Sprintf("meals[%d].nutrition.calories", i), Reason: "must not be negative"}
		}
		sum += m.Nutrition.Calories
		n.Meals = append(n.Meals, m)
	}
	if len(n.Meals) == 0 {
		return nil, &SchemaError{Field: "meals", Reason: "must not be empty"}
	}
	if n.TotalCalories <= 0 {
		n.TotalCalories = sum
	}
	return n, nil
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
