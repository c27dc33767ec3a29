package strategy

import (
	"alcyxob/wellness-app/internal/domain"
	"strings"
)

type dish struct {
	name         string
	ingredients  []string
	instructions []string
	prep         int
	facts        domain.NutritionFacts
	contains     []string // allergen and diet tags
}

// Every slot ends with a dish that carries no tags so a menu can always be
// built, whatever the restrictions.
var dishes = map[string][]dish{
	"breakfast": {
		{name: "Oatmeal with berries", ingredients: []string{"rolled oats", "milk", "mixed berries"}, instructions: []string{"Simmer oats in milk for 5 minutes.", "Top with berries."}, prep: 10,
			facts: domain.NutritionFacts{Calories: 350, Protein: 12, Carbs: 55, Fats: 8, Fiber: 7}, contains: []string{"dairy", "gluten"}},
		{name: "Veggie scrambled eggs", ingredients: []string{"eggs", "spinach", "tomato"}, instructions: []string{"Whisk eggs.", "Cook with vegetables until set."}, prep: 10,
			facts: domain.NutritionFacts{Calories: 300, Protein: 20, Carbs: 6, Fats: 20, Fiber: 2}, contains: []string{"egg"}},
		{name: "Fruit and seed bowl", ingredients: []string{"banana", "apple", "pumpkin seeds"}, instructions: []string{"Chop fruit.", "Sprinkle with seeds."}, prep: 5,
			facts: domain.NutritionFacts{Calories: 320, Protein: 8, Carbs: 50, Fats: 10, Fiber: 8}},
	},
	"lunch": {
		{name: "Grilled chicken salad", ingredients: []string{"chicken breast", "mixed greens", "olive oil", "cucumber"}, instructions: []string{"Grill the chicken.", "Toss with greens and dressing."}, prep: 20,
			facts: domain.NutritionFacts{Calories: 450, Protein: 40, Carbs: 12, Fats: 22, Fiber: 4}, contains: []string{"meat"}},
		{name: "Tuna whole-wheat wrap", ingredients: []string{"tuna", "whole-wheat tortilla", "lettuce"}, instructions: []string{"Mix tuna with lemon.", "Wrap with lettuce."}, prep: 10,
			facts: domain.NutritionFacts{Calories: 420, Protein: 32, Carbs: 38, Fats: 14, Fiber: 5}, contains: []string{"fish", "gluten"}},
		{name: "Chickpea and rice bowl", ingredients: []string{"chickpeas", "brown rice", "roasted peppers"}, instructions: []string{"Cook rice.", "Top with warmed chickpeas and peppers."}, prep: 25,
			facts: domain.NutritionFacts{Calories: 520, Protein: 18, Carbs: 85, Fats: 10, Fiber: 12}},
	},
	"dinner": {
		{name: "Baked salmon with vegetables", ingredients: []string{"salmon fillet", "broccoli", "sweet potato"}, instructions: []string{"Bake everything at 200C for 20 minutes."}, prep: 30,
			facts: domain.NutritionFacts{Calories: 550, Protein: 38, Carbs: 40, Fats: 24, Fiber: 7}, contains: []string{"fish"}},
		{name: "Turkey chili", ingredients: []string{"ground turkey", "kidney beans", "tomatoes"}, instructions: []string{"Brown the turkey.", "Simmer with beans and tomatoes for 20 minutes."}, prep: 35,
			facts: domain.NutritionFacts{Calories: 500, Protein: 40, Carbs: 42, Fats: 15, Fiber: 11}, contains: []string{"meat"}},
		{name: "Lentil and vegetable stew", ingredients: []string{"red lentils", "carrots", "potatoes", "vegetable stock"}, instructions: []string{"Simmer all ingredients for 25 minutes."}, prep: 35,
			facts: domain.NutritionFacts{Calories: 480, Protein: 22, Carbs: 75, Fats: 6, Fiber: 16}},
	},
	"snack": {
		{name: "Greek yogurt", ingredients: []string{"greek yogurt", "honey"}, instructions: []string{"Drizzle honey over yogurt."}, prep: 2,
			facts: domain.NutritionFacts{Calories: 180, Protein: 15, Carbs: 20, Fats: 4}, contains: []string{"dairy"}},
		{name: "Apple with almond butter", ingredients: []string{"apple", "almond butter"}, instructions: []string{"Slice the apple and dip."}, prep: 3,
			facts: domain.NutritionFacts{Calories: 200, Protein: 5, Carbs: 25, Fats: 10, Fiber: 5}, contains: []string{"nuts"}},
		{name: "Carrot sticks and hummus", ingredients: []string{"carrots", "hummus"}, instructions: []string{"Cut carrots into sticks."}, prep: 5,
			facts: domain.NutritionFacts{Calories: 150, Protein: 5, Carbs: 18, Fats: 7, Fiber: 6}},
	},
}

// excludedTags maps restrictions and allergies to dish tags they rule out.
var excludedTags = map[string][]string{
	"vegetarian":  {"meat", "fish"},
	"vegan":       {"meat", "fish", "dairy", "egg"},
	"pescatarian": {"meat"},
	"gluten":      {"gluten"},
	"wheat":       {"gluten"},
	"celiac":      {"gluten"},
	"dairy":       {"dairy"},
	"lactose":     {"dairy"},
	"milk":        {"dairy"},
	"nut":         {"nuts"},
	"peanut":      {"nuts"},
	"almond":      {"nuts"},
	"egg":         {"egg"},
	"fish":        {"fish"},
	"shellfish":   {"fish"},
	"seafood":     {"fish"},
}

func bannedTags(p domain.UserProfile) map[string]bool {
	banned := map[string]bool{}
	for _, r := range append(append([]string{}, p.DietaryRestrictions...), p.Allergies...) {
		r = strings.ToLower(r)
		for key, tags := range excludedTags {
			if strings.Contains(r, key) {
				for _, t := range tags {
					banned[t] = true
				}
			}
		}
	}
	return banned
}

func allowed(d dish, banned map[string]bool) bool {
	for _, t := range d.contains {
		if banned[t] {
			return false
		}
	}
	return true
}

// FallbackNutrition builds a deterministic menu rotating through the default
// dishes, skipping anything the profile's restrictions or allergies rule out.
func FallbackNutrition(dayNumber int, profile domain.UserProfile, mealsPerDay int) *domain.NutritionContent {
	slots := []string{"breakfast", "lunch", "dinner"}
	if mealsPerDay >= 4 {
		slots = append(slots, "snack")
	}
	banned := bannedTags(profile)
	idx := max(dayNumber-1, 0)

	n := &domain.NutritionContent{
		Title:       "Balanced day",
		Description: "A simple menu from the default library.",
		Meals:       make([]domain.Meal, 0, len(slots)),
	}
	for _, slot := range slots {
		var options []dish
		for _, d := range dishes[slot] {
			if allowed(d, banned) {
				options = append(options, d)
			}
		}
		d := options[idx%len(options)]
		n.Meals = append(n.Meals, domain.Meal{
			Type:         slot,
			Name:         d.name,
			Ingredients:  d.ingredients,
			Instructions: d.instructions,
			PrepMinutes:  d.prep,
			Nutrition:    d.facts,
		})
		n.TotalCalories += d.facts.Calories
	}
	return n
}
