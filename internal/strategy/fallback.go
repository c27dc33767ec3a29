package strategy

import (
	"alcyxob/wellness-app/internal/domain"
	"strings"
)

type move struct {
	name         string
	muscles      []string
	equipment    []string
	reps         string
	instructions string
	cues         []string
	easier       []string
	harder       []string
}

var warmups = []move{
	{name: "Marching in place", muscles: []string{"full body"}, reps: "60s", instructions: "March at an easy pace, swinging the arms.", cues: []string{"tall posture"}},
	{name: "Arm circles", muscles: []string{"shoulders"}, reps: "30s", instructions: "Small circles forward, then backward.", cues: []string{"relaxed neck"}},
	{name: "Hip circles", muscles: []string{"hips"}, reps: "10 each way", instructions: "Hands on hips, draw slow circles.", cues: []string{"knees soft"}},
}

var cooldowns = []move{
	{name: "Standing hamstring stretch", muscles: []string{"hamstrings"}, reps: "30s each side", instructions: "Heel forward, hinge at the hips.", cues: []string{"flat back"}},
	{name: "Child's pose", muscles: []string{"back", "hips"}, reps: "45s", instructions: "Sit back on the heels, arms long.", cues: []string{"breathe slowly"}},
	{name: "Chest doorway stretch", muscles: []string{"chest"}, reps: "30s", instructions: "Forearm on a door frame, turn away gently.", cues: []string{"no pain"}},
}

// Main blocks rotate by day so consecutive fallback days hit different areas.
var bodyweightBlocks = [][]move{
	{
		{name: "Bodyweight squat", muscles: []string{"legs", "glutes"}, reps: "12", instructions: "Sit back and down, stand tall.", cues: []string{"knees track toes", "chest up"}, easier: []string{"Chair squat"}, harder: []string{"Jump squat"}},
		{name: "Glute bridge", muscles: []string{"glutes", "hamstrings"}, reps: "12", instructions: "Lift hips until the body forms a line.", cues: []string{"squeeze at the top"}, easier: []string{"Partial bridge"}, harder: []string{"Single-leg bridge"}},
		{name: "Reverse lunge", muscles: []string{"legs"}, reps: "8 each side", instructions: "Step back and lower the back knee.", cues: []string{"front knee over ankle"}, easier: []string{"Supported split squat"}, harder: []string{"Walking lunge"}},
	},
	{
		{name: "Incline push-up", muscles: []string{"chest", "triceps"}, reps: "10", instructions: "Hands on a sturdy surface, lower the chest.", cues: []string{"body straight"}, easier: []string{"Wall push-up"}, harder: []string{"Push-up"}},
		{name: "Superman hold", muscles: []string{"back"}, reps: "20s", instructions: "Lie face down, lift arms and legs.", cues: []string{"neck neutral"}, easier: []string{"Alternating superman"}, harder: []string{"Superman pulses"}},
		{name: "Plank", muscles: []string{"core"}, reps: "30s", instructions: "Forearms down, hold a straight line.", cues: []string{"brace the belly"}, easier: []string{"Knee plank"}, harder: []string{"Plank shoulder taps"}},
	},
	{
		{name: "Step-up", muscles: []string{"legs"}, reps: "10 each side", instructions: "Step onto a low stair and stand tall.", cues: []string{"drive through the heel"}, easier: []string{"Lower step"}, harder: []string{"Higher step"}},
		{name: "Dead bug", muscles: []string{"core"}, reps: "8 each side", instructions: "Extend opposite arm and leg slowly.", cues: []string{"low back down"}, easier: []string{"Heel taps"}, harder: []string{"Slow tempo dead bug"}},
		{name: "Bird dog", muscles: []string{"back", "core"}, reps: "8 each side", instructions: "On all fours, reach opposite arm and leg.", cues: []string{"hips level"}, easier: []string{"Arm-only reach"}, harder: []string{"Bird dog with pause"}},
	},
}

var dumbbellBlocks = [][]move{
	{
		{name: "Goblet squat", muscles: []string{"legs", "glutes"}, equipment: []string{"dumbbell"}, reps: "10", instructions: "Hold one dumbbell at the chest and squat.", cues: []string{"elbows inside knees"}, easier: []string{"Bodyweight squat"}, harder: []string{"Tempo goblet squat"}},
		{name: "Romanian deadlift", muscles: []string{"hamstrings", "glutes"}, equipment: []string{"dumbbell"}, reps: "10", instructions: "Hinge at the hips with soft knees.", cues: []string{"weights close to legs"}, easier: []string{"Good morning"}, harder: []string{"Single-leg RDL"}},
		{name: "Dumbbell row", muscles: []string{"back", "biceps"}, equipment: []string{"dumbbell"}, reps: "10 each side", instructions: "Brace on a bench and row to the hip.", cues: []string{"shoulder down"}, easier: []string{"Lighter dumbbell"}, harder: []string{"Pause row"}},
	},
	{
		{name: "Dumbbell floor press", muscles: []string{"chest", "triceps"}, equipment: []string{"dumbbell"}, reps: "10", instructions: "Lie down and press both dumbbells up.", cues: []string{"wrists stacked"}, easier: []string{"Incline push-up"}, harder: []string{"Single-arm press"}},
		{name: "Dumbbell shoulder press", muscles: []string{"shoulders"}, equipment: []string{"dumbbell"}, reps: "8", instructions: "Press overhead from shoulder height.", cues: []string{"ribs down"}, easier: []string{"Seated press"}, harder: []string{"Standing single-arm press"}},
		{name: "Plank", muscles: []string{"core"}, reps: "30s", instructions: "Forearms down, hold a straight line.", cues: []string{"brace the belly"}, easier: []string{"Knee plank"}, harder: []string{"Plank shoulder taps"}},
	},
}

var assessmentMoves = []move{
	{name: "Push-up test", muscles: []string{"chest", "triceps"}, reps: "max in 60s", instructions: "Count clean reps in one minute; knees down is fine.", cues: []string{"record the number"}},
	{name: "Squat test", muscles: []string{"legs"}, reps: "max in 60s", instructions: "Count full squats in one minute.", cues: []string{"record the number"}},
	{name: "Plank hold", muscles: []string{"core"}, reps: "max hold", instructions: "Hold a forearm plank as long as form allows.", cues: []string{"record the time"}},
}

var recoveryMoves = []move{
	{name: "Easy walk", muscles: []string{"full body"}, reps: "15 min", instructions: "Walk at a conversational pace."},
	{name: "Cat-cow", muscles: []string{"back"}, reps: "10", instructions: "Alternate arching and rounding the back slowly."},
	{name: "World's greatest stretch", muscles: []string{"hips", "back"}, reps: "5 each side", instructions: "Lunge, rotate the chest toward the front knee."},
}

type dose struct {
	sets int
	rest int // seconds
	main int // minutes
}

var doses = map[domain.Difficulty]dose{
	domain.DifficultyBeginner:     {sets: 2, rest: 75, main: 15},
	domain.DifficultyIntermediate: {sets: 3, rest: 60, main: 20},
	domain.DifficultyAdvanced:     {sets: 4, rest: 45, main: 30},
}

func toExercise(m move, category string, sets, rest int) domain.Exercise {
	equipment := m.equipment
	if equipment == nil {
		equipment = []string{}
	}
	return domain.Exercise{
		Name:          m.name,
		Category:      category,
		MuscleGroups:  nonNil(m.muscles),
		Equipment:     equipment,
		Sets:          sets,
		Reps:          m.reps,
		RestTime:      rest,
		Instructions:  m.instructions,
		FormCues:      nonNil(m.cues),
		Modifications: domain.ExerciseModifications{Easier: nonNil(m.easier), Harder: nonNil(m.harder)},
	}
}

// FallbackWorkout returns a safe session of one warmup, a rotating main block
// and one cooldown. It is deterministic in its inputs and never fails.
func FallbackWorkout(dayNumber int, profile domain.UserProfile, difficulty domain.Difficulty) *domain.WorkoutContent {
	d, ok := doses[difficulty]
	if !ok {
		d = doses[domain.DifficultyBeginner]
	}
	idx := max(dayNumber-1, 0)
	blocks := bodyweightBlocks
	if hasDumbbells(profile) {
		blocks = dumbbellBlocks
	}
	block := blocks[idx%len(blocks)]

	exercises := []domain.Exercise{toExercise(warmups[idx%len(warmups)], domain.CategoryWarmup, 1, 0)}
	muscles := []string{}
	seen := map[string]bool{}
	for _, m := range block {
		exercises = append(exercises, toExercise(m, domain.CategoryMain, d.sets, d.rest))
		for _, g := range m.muscles {
			if !seen[g] {
				seen[g] = true
				muscles = append(muscles, g)
			}
		}
	}
	exercises = append(exercises, toExercise(cooldowns[idx%len(cooldowns)], domain.CategoryCooldown, 1, 0))

	return &domain.WorkoutContent{
		Title:            "Foundation session: " + strings.Join(muscles[:min(2, len(muscles))], " & "),
		Description:      "A standard session from the default library.",
		MuscleGroups:     muscles,
		WorkoutType:      "strength",
		WarmupDuration:   5,
		WorkoutDuration:  d.main,
		CooldownDuration: 5,
		Exercises:        exercises,
	}
}

// FallbackAssessment is a fixed self-test for the final day.
func FallbackAssessment(profile domain.UserProfile) *domain.WorkoutContent {
	exercises := []domain.Exercise{toExercise(warmups[0], domain.CategoryWarmup, 1, 0)}
	for _, m := range assessmentMoves {
		exercises = append(exercises, toExercise(m, domain.CategoryMain, 1, 120))
	}
	exercises = append(exercises, toExercise(cooldowns[1], domain.CategoryCooldown, 1, 0))
	return &domain.WorkoutContent{
		Title:            "Progress assessment",
		Description:      "Measure where you are now and compare with day one.",
		MuscleGroups:     []string{"full body"},
		WorkoutType:      "assessment",
		WarmupDuration:   5,
		WorkoutDuration:  15,
		CooldownDuration: 5,
		Exercises:        exercises,
	}
}

func activeRecoveryWorkout() *domain.WorkoutContent {
	exercises := make([]domain.Exercise, 0, len(recoveryMoves))
	for _, m := range recoveryMoves {
		exercises = append(exercises, toExercise(m, domain.CategoryCooldown, 1, 0))
	}
	return &domain.WorkoutContent{
		Title:            "Active recovery",
		Description:      "Light movement to help the body recover.",
		MuscleGroups:     []string{"full body"},
		WorkoutType:      "mobility",
		WorkoutDuration:  20,
		CooldownDuration: 0,
		Exercises:        exercises,
	}
}

func hasDumbbells(p domain.UserProfile) bool {
	for _, e := range p.Equipment {
		if strings.Contains(strings.ToLower(e), "dumbbell") {
			return true
		}
	}
	return false
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
