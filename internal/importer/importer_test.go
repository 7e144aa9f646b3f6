package importer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/repflow/internal/models"
)

type captureWriter struct {
	created []models.Routine
}

func (c *captureWriter) CreateRoutine(_ context.Context, r models.Routine) (*models.Routine, error) {
	c.created = append(c.created, r)
	return &r, nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const pushDayYAML = `name: Push Day
exercises:
  - name: Bench Press
    category: strength
    muscle_groups: [chest]
    difficulty: intermediate
    sets: 4
    reps_min: 6
    reps_max: 10
  - name: Lateral Raise
    category: isolation
    muscle_groups: [shoulders]
    sets: 3
    rest_seconds: 45
`

// TestParseFile verifies the YAML schema maps onto the routine model with
// defaults filled in and stable derived IDs.
func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "push.yaml", pushDayYAML)

	routine, err := ParseFile(filepath.Join(dir, "push.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if routine.Name != "Push Day" || len(routine.Exercises) != 2 {
		t.Fatalf("routine = %+v", routine)
	}

	bench := routine.Exercises[0]
	if bench.DayOfWeek != 1 || bench.OrderInDay != 1 || bench.TargetSets != 4 {
		t.Errorf("bench slot = %+v", bench)
	}
	if bench.TargetReps() != 8 {
		t.Errorf("bench target reps = %d, want midpoint 8", bench.TargetReps())
	}
	if got := *routine.Exercises[1].RestSeconds; got != 45 {
		t.Errorf("lateral raise rest = %d, want authored 45", got)
	}

	// Same file parses to the same IDs.
	again, err := ParseFile(filepath.Join(dir, "push.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != routine.ID || again.Exercises[0].ID != routine.Exercises[0].ID {
		t.Error("derived IDs are not stable across parses")
	}
}

// TestParseFileRejectsBadDefinitions verifies validation failures.
func TestParseFileRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "exercises: []\n"},
		{"bad day", "name: X\nexercises:\n  - name: Row\n    day: 9\n"},
		{"inverted reps", "name: X\nexercises:\n  - name: Row\n    reps_min: 12\n    reps_max: 8\n"},
		{"duplicate order", "name: X\nexercises:\n  - name: Row\n    order: 1\n  - name: Curl\n    order: 1\n"},
	}
	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFile(t, dir, "bad.yaml", tt.content)
			if _, err := ParseFile(filepath.Join(dir, "bad.yaml")); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

// TestImportDirectory verifies the importer walks a directory, fills rest
// defaults, assigns ownership, and counts malformed files without aborting.
func TestImportDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "push.yaml", pushDayYAML)
	writeFile(t, dir, "broken.yaml", "name: ''\n")
	writeFile(t, dir, "notes.txt", "not a routine")

	db := &captureWriter{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	imp := New(db, 7, log, false)

	stats, err := imp.Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesProcessed != 1 || stats.FilesErrored != 1 || stats.FilesSkipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.RoutinesCreated != 1 || len(db.created) != 1 {
		t.Fatalf("created %d routines, want 1", len(db.created))
	}

	created := db.created[0]
	if created.UserID != 7 {
		t.Errorf("user id = %d, want 7", created.UserID)
	}
	// Intermediate chest compound, 4 sets, midpoint 8 reps → base 90.
	if got := *created.Exercises[0].RestSeconds; got != 90 {
		t.Errorf("pre-filled rest = %d, want 90", got)
	}
}

// TestImportDryRun verifies dry-run parses and counts but writes nothing.
func TestImportDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "push.yaml", pushDayYAML)

	db := &captureWriter{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	imp := New(db, 1, log, true)

	stats, err := imp.Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesProcessed != 1 || stats.RoutinesCreated != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(db.created) != 0 {
		t.Errorf("dry run wrote %d routines", len(db.created))
	}
}
