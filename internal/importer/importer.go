// Package importer loads routine definition files into the database:
// each .yaml/.yml file under a directory becomes one routine. IDs derive
// from names, so re-running an import updates exercises in place instead
// of duplicating them.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/resttime"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed  int
	FilesSkipped    int
	FilesErrored    int
	RoutinesCreated int
	ExercisesSeen   int
}

// RoutineWriter is the storage surface the importer needs. *storage.DB
// satisfies it.
type RoutineWriter interface {
	CreateRoutine(ctx context.Context, r models.Routine) (*models.Routine, error)
}

// Importer reads routine files from a directory and inserts them.
type Importer struct {
	db     RoutineWriter
	log    *slog.Logger
	userID int
	dryRun bool
	stats  Stats
}

// New creates a new Importer writing routines owned by userID.
func New(db RoutineWriter, userID int, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, userID: userID, log: log, dryRun: dryRun}
}

// Import processes every routine file under dir. Files that fail to parse
// are counted and logged, not fatal; storage errors abort the run.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		default:
			imp.stats.FilesSkipped++
		}
	}
	sort.Strings(files)

	for _, path := range files {
		routine, err := ParseFile(path)
		if err != nil {
			imp.stats.FilesErrored++
			imp.log.Warn("skipping routine file", "path", path, "error", err)
			continue
		}
		imp.stats.FilesProcessed++
		imp.stats.ExercisesSeen += len(routine.Exercises)

		// Authoring-time rest pre-fill, same as the HTTP create path.
		for i := range routine.Exercises {
			slot := &routine.Exercises[i]
			if slot.RestSeconds == nil {
				slot.RestSeconds = models.Ptr(resttime.Compute(
					slot.Exercise.Category, slot.Exercise.MuscleGroups,
					slot.Exercise.Difficulty, slot.TargetSets, slot.TargetReps()))
			}
		}

		if imp.dryRun {
			imp.log.Info("would import routine", "path", path,
				"routine", routine.Name, "exercises", len(routine.Exercises))
			continue
		}

		routine.UserID = imp.userID
		if _, err := imp.db.CreateRoutine(ctx, *routine); err != nil {
			return &imp.stats, fmt.Errorf("importing %s: %w", path, err)
		}
		imp.stats.RoutinesCreated++
		imp.log.Info("imported routine", "routine", routine.Name,
			"exercises", len(routine.Exercises))
	}

	return &imp.stats, nil
}
