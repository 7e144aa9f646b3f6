// Package resttime computes recommended rest durations between sets from
// exercise metadata and planned volume. The computation is a pure function:
// it is used at routine-authoring time to pre-fill a default and again at
// execution time as the fallback when no explicit rest override was set.
package resttime

import "strings"

// Classification of an exercise for rest purposes.
type Class int

const (
	Unclassified Class = iota
	Compound
	Isolation
	CardioCore
)

func (c Class) String() string {
	switch c {
	case Compound:
		return "compound"
	case Isolation:
		return "isolation"
	case CardioCore:
		return "cardio/core"
	default:
		return "unclassified"
	}
}

// Bounds of the recommendation in seconds.
const (
	MinRest = 15
	MaxRest = 180
)

// Keyword lists matched as case-insensitive substrings against the exercise
// category and muscle-group strings. Compound wins when both match.
var (
	compoundKeywords = []string{
		"compound", "strength", "powerlifting", "olympic",
		"legs", "back", "chest", "glutes", "full body", "full-body",
	}
	isolationKeywords = []string{
		"isolation", "arms", "biceps", "triceps", "shoulders",
		"forearms", "calves", "accessory",
	}
	cardioCoreKeywords = []string{
		"cardio", "core", "abs", "conditioning", "hiit", "mobility",
	}
)

// Classify buckets an exercise by its category and muscle groups.
// Unrecognized metadata yields Unclassified, never an error.
func Classify(category string, muscleGroups []string) Class {
	haystack := strings.ToLower(category)
	for _, mg := range muscleGroups {
		haystack += " " + strings.ToLower(mg)
	}

	match := func(keywords []string) bool {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case match(compoundKeywords):
		return Compound
	case match(isolationKeywords):
		return Isolation
	case match(cardioCoreKeywords):
		return CardioCore
	default:
		return Unclassified
	}
}

// Compute returns the recommended rest in seconds for an exercise with the
// given metadata, target set count, and target rep count. Deterministic and
// total: absent or unrecognized fields fall back to an intermediate,
// general baseline, and the result is clamped to [MinRest, MaxRest].
func Compute(category string, muscleGroups []string, difficulty string, sets, targetReps int) int {
	var rest int
	switch Classify(category, muscleGroups) {
	case Compound:
		rest = 90
	case Isolation:
		rest = 45
	case CardioCore:
		rest = 30
	default:
		rest = 60
	}

	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "advanced":
		rest += 30
	case "beginner":
		rest -= 15
	}

	if sets >= 5 {
		rest += 15
	} else if sets <= 2 {
		rest -= 10
	}

	if targetReps > 0 {
		if targetReps <= 5 {
			rest += 30 // strength work
		} else if targetReps >= 15 {
			rest -= 15 // endurance work
		}
	}

	if rest < MinRest {
		rest = MinRest
	}
	if rest > MaxRest {
		rest = MaxRest
	}
	return rest
}
