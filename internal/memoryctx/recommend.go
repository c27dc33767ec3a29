package memoryctx

import (
	"alcyxob/wellness-app/internal/domain"
	"fmt"
	"strings"
)

const topN = 3

type phrasing struct {
	simplify, reduce, progress, harder, easier, restBefore string
}

var phrases = map[domain.PlanKind]phrasing{
	domain.PlanKindExercise: {
		simplify:   "Simplify the next session: fewer exercises and a shorter duration to rebuild the habit",
		reduce:     "Reduce intensity and emphasize technique",
		progress:   "Progress gradually with one extra set or a small load increase",
		harder:     "Increase difficulty slightly; recent sessions were rated easy",
		easier:     "Lower difficulty; use easier variations of demanding exercises",
		restBefore: "The previous day was a rest day, so a full session is appropriate",
	},
	domain.PlanKindNutrition: {
		simplify:   "Simplify the next menu: fewer ingredients and short prep times",
		reduce:     "Favour familiar, easy-to-digest meals and steady energy through the day",
		progress:   "Keep momentum and introduce one new recipe",
		harder:     "Introduce slightly more involved recipes",
		easier:     "Choose quicker recipes with fewer steps",
		restBefore: "The previous day was a prep day; reuse prepared components",
	},
}

// recommend maps trends to short directives for the generator. Consistency is
// only considered when there were days the user could have acted on.
func recommend(mc *domain.MemoryContext, kind domain.PlanKind, hasDue bool) []string {
	p := phrases[kind]
	var out []string

	if hasDue && mc.ConsistencyPattern == domain.ConsistencyInconsistent {
		out = append(out, p.simplify)
	}
	switch mc.PerformanceTrend {
	case domain.TrendDeclining:
		out = append(out, p.reduce)
	case domain.TrendImproving:
		out = append(out, p.progress)
	}
	switch mc.DifficultyTrend {
	case domain.DifficultyIncrease:
		out = append(out, p.harder)
	case domain.DifficultyDecrease:
		out = append(out, p.easier)
	}
	if len(mc.Avoid) > 0 {
		out = append(out, "Do not include: "+strings.Join(top(mc.Avoid), ", "))
	}
	if len(mc.Preferences) > 0 {
		out = append(out, "Include favourites where they fit: "+strings.Join(top(mc.Preferences), ", "))
	}
	if len(mc.RecentDays) > 0 {
		last := mc.RecentDays[0]
		switch {
		case last.Type.IsRestLike() || last.Type == domain.DayTypePrep:
			out = append(out, p.restBefore)
		case kind == domain.PlanKindExercise && len(last.Focus) > 0:
			out = append(out, "Vary the focus from the previous day ("+strings.Join(last.Focus, ", ")+")")
		}
	}
	if mc.PreferredDurationMinutes > 0 && kind == domain.PlanKindExercise {
		out = append(out, fmt.Sprintf("Aim for about %d minutes", mc.PreferredDurationMinutes))
	}
	return out
}

func top(xs []string) []string {
	if len(xs) > topN {
		return xs[:topN]
	}
	return xs
}

// Text renders the context as the compact block sent to the generator.
func Text(mc *domain.MemoryContext) string {
	if mc == nil || mc.FirstDay {
		return "This is the first day of the plan; there is no history yet."
	}
	var b strings.Builder
	if len(mc.RecentDays) > 0 {
		last := mc.RecentDays[0]
		fmt.Fprintf(&b, "- Previous day (day %d, %s)", last.DayNumber, last.Type)
		if last.Title != "" {
			fmt.Fprintf(&b, ": %q", last.Title)
		}
		fmt.Fprintf(&b, ", status %s", last.Status)
		if last.Rating > 0 {
			fmt.Fprintf(&b, ", rated %d/5", last.Rating)
		}
		if last.Energy > 0 {
			fmt.Fprintf(&b, ", energy %d/10", last.Energy)
		}
		b.WriteString("\n")
		if len(last.Items) > 0 {
			fmt.Fprintf(&b, "- Previous items: %s\n", strings.Join(last.Items, ", "))
		}
	}
	fmt.Fprintf(&b, "- Trends (days %d-%d): performance %s, consistency %s (%.0f%% completed), difficulty %s\n",
		mc.WindowStart, mc.WindowEnd, mc.PerformanceTrend, mc.ConsistencyPattern, mc.CompletionRate*100, mc.DifficultyTrend)
	if len(mc.Preferences) > 0 {
		fmt.Fprintf(&b, "- Preferred: %s\n", strings.Join(top(mc.Preferences), ", "))
	}
	if len(mc.Avoid) > 0 {
		fmt.Fprintf(&b, "- Avoid: %s\n", strings.Join(top(mc.Avoid), ", "))
	}
	if mc.PreferredDurationMinutes > 0 {
		fmt.Fprintf(&b, "- Preferred duration: %d min\n", mc.PreferredDurationMinutes)
	}
	if len(mc.Recommendations) > 0 {
		b.WriteString("- Recommendations:\n")
		for _, r := range mc.Recommendations {
			fmt.Fprintf(&b, "  * %s\n", r)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
