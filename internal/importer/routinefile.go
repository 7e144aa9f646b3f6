package importer

import (
	"fmt"
	"os"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// routineFile is the YAML schema of a routine definition file.
type routineFile struct {
	Name      string `yaml:"name"`
	Exercises []struct {
		Name         string   `yaml:"name"`
		Category     string   `yaml:"category"`
		MuscleGroups []string `yaml:"muscle_groups"`
		Difficulty   string   `yaml:"difficulty"`
		Day          int      `yaml:"day"`
		Order        int      `yaml:"order"`
		Sets         int      `yaml:"sets"`
		RepsMin      *int     `yaml:"reps_min"`
		RepsMax      *int     `yaml:"reps_max"`
		RestSeconds  *int     `yaml:"rest_seconds"`
		TargetWeight *float64 `yaml:"target_weight"`
	} `yaml:"exercises"`
}

// ParseFile reads one routine definition from YAML. IDs are derived
// deterministically from the names so re-importing the same file upserts
// instead of duplicating, and the terminal runner resumes the same session
// across invocations.
func ParseFile(path string) (*models.Routine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading routine file: %w", err)
	}

	var file routineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Name == "" {
		return nil, fmt.Errorf("%s: routine name is required", path)
	}

	routine := &models.Routine{
		ID:   deriveID("routine", file.Name),
		Name: file.Name,
	}
	seen := make(map[[2]int]bool)
	for i, ex := range file.Exercises {
		if ex.Name == "" {
			return nil, fmt.Errorf("%s: exercise %d: name is required", path, i+1)
		}
		day := ex.Day
		if day == 0 {
			day = 1
		}
		if day < 1 || day > 7 {
			return nil, fmt.Errorf("%s: exercise %q: day must be 1-7", path, ex.Name)
		}
		order := ex.Order
		if order == 0 {
			order = i + 1
		}
		sets := ex.Sets
		if sets == 0 {
			sets = 3
		}
		if ex.RepsMin != nil && ex.RepsMax != nil && *ex.RepsMin > *ex.RepsMax {
			return nil, fmt.Errorf("%s: exercise %q: reps_min exceeds reps_max", path, ex.Name)
		}
		key := [2]int{day, order}
		if seen[key] {
			return nil, fmt.Errorf("%s: exercise %q: duplicate order %d for day %d", path, ex.Name, order, day)
		}
		seen[key] = true

		routine.Exercises = append(routine.Exercises, models.RoutineExercise{
			ID:        deriveID("slot", file.Name+"/"+ex.Name),
			RoutineID: routine.ID,
			Exercise: models.Exercise{
				ID:           deriveID("exercise", ex.Name),
				Name:         ex.Name,
				Category:     ex.Category,
				MuscleGroups: ex.MuscleGroups,
				Difficulty:   models.NormalizeDifficulty(ex.Difficulty),
			},
			DayOfWeek:    day,
			OrderInDay:   order,
			TargetSets:   sets,
			RepRangeMin:  ex.RepsMin,
			RepRangeMax:  ex.RepsMax,
			RestSeconds:  ex.RestSeconds,
			TargetWeight: ex.TargetWeight,
		})
	}
	return routine, nil
}

// deriveID produces a stable name-based UUID.
func deriveID(kind, name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("repflow:"+kind+":"+name))
}
