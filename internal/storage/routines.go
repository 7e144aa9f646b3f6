package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrRoutineNotFound is returned when a routine id does not exist for the
// user.
var ErrRoutineNotFound = errors.New("routine not found")

// CreateRoutine writes a routine with its exercise slots in one
// transaction. The routine and exercise catalog entries are upserted by id
// and the slot set is replaced, so re-importing a routine with stable
// derived ids updates it in place instead of duplicating. Returns the
// routine with generated ids filled in.
func (db *DB) CreateRoutine(ctx context.Context, r models.Routine) (*models.Routine, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning routine insert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO routines (id, user_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = $3`,
		r.ID, r.UserID, r.Name)
	if err != nil {
		return nil, fmt.Errorf("upserting routine: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM routine_exercises WHERE routine_id = $1`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("clearing routine exercises: %w", err)
	}

	for i := range r.Exercises {
		slot := &r.Exercises[i]
		slot.RoutineID = r.ID
		if slot.ID == uuid.Nil {
			slot.ID = uuid.New()
		}
		if slot.Exercise.ID == uuid.Nil {
			slot.Exercise.ID = uuid.New()
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO exercises (id, name, category, muscle_groups, difficulty)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
				SET name = $2, category = $3, muscle_groups = $4, difficulty = $5`,
			slot.Exercise.ID, slot.Exercise.Name, slot.Exercise.Category,
			slot.Exercise.MuscleGroups, slot.Exercise.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("upserting exercise %q: %w", slot.Exercise.Name, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO routine_exercises (id, routine_id, exercise_id,
			 day_of_week, order_in_day, target_sets,
			 rep_range_min, rep_range_max, rest_seconds, target_weight)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			slot.ID, r.ID, slot.Exercise.ID,
			slot.DayOfWeek, slot.OrderInDay, slot.TargetSets,
			slot.RepRangeMin, slot.RepRangeMax, slot.RestSeconds, slot.TargetWeight)
		if err != nil {
			return nil, fmt.Errorf("inserting routine exercise: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing routine insert: %w", err)
	}
	return &r, nil
}

// GetRoutine retrieves a routine with its slots resolved against the
// exercise catalog, ordered by day then order-in-day.
func (db *DB) GetRoutine(ctx context.Context, routineID uuid.UUID, userID int) (*models.Routine, error) {
	var r models.Routine
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name FROM routines WHERE id = $1 AND user_id = $2`,
		routineID, userID).Scan(&r.ID, &r.UserID, &r.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, fmt.Errorf("querying routine: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT re.id, re.day_of_week, re.order_in_day, re.target_sets,
		 re.rep_range_min, re.rep_range_max, re.rest_seconds, re.target_weight,
		 e.id, e.name, e.category, e.muscle_groups, e.difficulty
		 FROM routine_exercises re
		 JOIN exercises e ON e.id = re.exercise_id
		 WHERE re.routine_id = $1
		 ORDER BY re.day_of_week, re.order_in_day`,
		routineID)
	if err != nil {
		return nil, fmt.Errorf("querying routine exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		slot := models.RoutineExercise{RoutineID: routineID}
		err := rows.Scan(&slot.ID, &slot.DayOfWeek, &slot.OrderInDay, &slot.TargetSets,
			&slot.RepRangeMin, &slot.RepRangeMax, &slot.RestSeconds, &slot.TargetWeight,
			&slot.Exercise.ID, &slot.Exercise.Name, &slot.Exercise.Category,
			&slot.Exercise.MuscleGroups, &slot.Exercise.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("scanning routine exercise: %w", err)
		}
		r.Exercises = append(r.Exercises, slot)
	}
	return &r, rows.Err()
}

// RoutineSummary is a routine header with its slot count, for list views.
type RoutineSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ExerciseCount int       `json:"exercise_count"`
}

// ListRoutines returns the user's routines with slot counts.
func (db *DB) ListRoutines(ctx context.Context, userID int) ([]RoutineSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT r.id, r.name, COUNT(re.id)
		 FROM routines r
		 LEFT JOIN routine_exercises re ON re.routine_id = r.id
		 WHERE r.user_id = $1
		 GROUP BY r.id, r.name
		 ORDER BY r.name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	var result []RoutineSummary
	for rows.Next() {
		var s RoutineSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.ExerciseCount); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
