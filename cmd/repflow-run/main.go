package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/claude/repflow/internal/importer"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/storage"
	"github.com/claude/repflow/internal/timer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// repflow-run executes a routine from the terminal without a server: the
// routine comes from a YAML file, the session persists in a local SQLite
// store so an interrupted workout resumes where it left off.
func main() {
	routinePath := flag.String("routine", "routine.yaml", "path to the routine YAML file")
	day := flag.Int("day", isoWeekday(time.Now()), "day of week to execute (1=Monday .. 7=Sunday)")
	stateDir := flag.String("state", defaultStateDir(), "directory for the local session store")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	routine, err := importer.ParseFile(*routinePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	store, err := storage.OpenLocalStore(*stateDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer store.Close()

	exercises := routine.DayExercises(*day)
	if len(exercises) == 0 {
		fmt.Fprintf(os.Stderr, "error: routine %q has no exercises for day %d\n", routine.Name, *day)
		os.Exit(1)
	}

	ctx := context.Background()
	orch := session.New(store, 1, log)
	sess, err := orch.Initialize(ctx, routine.ID, routine.Name, exercises)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	clock := timer.New(len(exercises),
		timer.WithOnFinish(func() { fmt.Println("\nworkout clock finished") }),
	)
	clock.Start()
	// Re-seed a live countdown from the persisted rest snapshot.
	if sess.IsResting && sess.RestTimerSeconds > 0 {
		clock.StartRest(time.Duration(sess.RestTimerSeconds) * time.Second)
	}

	fmt.Printf("RepFlow %s — %s (day %d, %d exercises)\n", Version, routine.Name, *day, len(exercises))
	if sess.CurrentExerciseIndex > 0 || sess.CurrentSet > 1 {
		fmt.Printf("resumed at exercise %d, set %d\n", sess.CurrentExerciseIndex+1, sess.CurrentSet)
	}
	printStatus(orch, clock)

	run(ctx, orch, clock)
}

func run(ctx context.Context, orch *session.Orchestrator, clock *timer.Timer) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			fmt.Print("> ")
			continue
		}

		switch fields[0] {
		case "set":
			cmdSet(ctx, orch, clock, fields[1:])
		case "rest":
			cmdRest(ctx, orch, clock, fields[1:])
		case "skip":
			clock.SkipRest()
			if err := orch.EndRest(ctx); err != nil {
				fmt.Println("error:", err)
			}
		case "next":
			cmdNext(ctx, orch, clock, true)
		case "skipex":
			cmdNext(ctx, orch, clock, false)
		case "pause":
			clock.Pause()
			if err := orch.Pause(ctx); err != nil {
				fmt.Println("error:", err)
			}
			fmt.Println("paused — progress saved")
		case "resume":
			clock.Resume()
			fmt.Println("resumed")
		case "status":
			// handled below, status prints after every command
		case "done":
			logged := orch.Progress().CompletedCount
			if err := orch.Complete(ctx); err != nil {
				fmt.Println("error:", err)
				break
			}
			clock.Finish()
			fmt.Printf("workout complete — %d exercises logged\n", logged)
			return
		case "quit", "q":
			fmt.Println("session saved — run again to resume")
			return
		case "help", "?":
			printHelp()
		default:
			fmt.Printf("unknown command %q (try: help)\n", fields[0])
		}

		printStatus(orch, clock)
		fmt.Print("> ")
	}
}

func cmdSet(ctx context.Context, orch *session.Orchestrator, clock *timer.Timer, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: set <reps> [weight]")
		return
	}
	reps, err := strconv.Atoi(args[0])
	if err != nil || reps < 1 {
		fmt.Println("reps must be a positive integer")
		return
	}
	var weight *float64
	if len(args) > 1 {
		w, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fmt.Println("weight must be a number")
			return
		}
		weight = &w
	}
	if err := orch.CompleteSet(ctx, reps, weight, ""); err != nil {
		fmt.Println("error:", err)
		return
	}
	clock.NextSet()
	fmt.Printf("logged %d reps — suggested rest %ds (type: rest)\n", reps, orch.RestForCurrent())
}

func cmdRest(ctx context.Context, orch *session.Orchestrator, clock *timer.Timer, args []string) {
	seconds := orch.RestForCurrent()
	if len(args) > 0 {
		s, err := strconv.Atoi(args[0])
		if err != nil || s < 1 {
			fmt.Println("seconds must be a positive integer")
			return
		}
		seconds = s
	}
	if err := orch.StartRest(ctx, seconds); err != nil {
		fmt.Println("error:", err)
		return
	}
	clock.StartRest(time.Duration(seconds) * time.Second)
	fmt.Printf("resting %ds\n", seconds)
}

func cmdNext(ctx context.Context, orch *session.Orchestrator, clock *timer.Timer, save bool) {
	if err := orch.NextExercise(ctx, save); err != nil {
		fmt.Println("error:", err)
		return
	}
	clock.NextExercise()
	if orch.IsComplete() {
		fmt.Println("all exercises done — type done to finish, or quit to keep the session")
	}
}

func printStatus(orch *session.Orchestrator, clock *timer.Timer) {
	p := orch.Progress()
	snap := clock.Snapshot()

	if p.WorkoutComplete {
		fmt.Printf("[%s] all %d exercises complete (%d logged)\n",
			snap.Elapsed.Round(time.Second), p.TotalExercises, p.CompletedCount)
		return
	}
	ex := orch.CurrentExercise()
	name := "?"
	sets := 0
	if ex != nil {
		name = ex.Exercise.Name
		sets = ex.TargetSets
	}
	line := fmt.Sprintf("[%s] exercise %d/%d %s — set %d/%d",
		snap.Elapsed.Round(time.Second), p.ExerciseIndex+1, p.TotalExercises, name, p.SetNumber, sets)
	if snap.Resting {
		line += fmt.Sprintf(" — resting %s", snap.RestRemaining.Round(time.Second))
	}
	if snap.Status == timer.Paused {
		line += " — PAUSED"
	}
	fmt.Println(line)
}

func printHelp() {
	fmt.Print(`commands:
  set <reps> [weight]  log the current set
  rest [seconds]       start a rest countdown (default: suggested)
  skip                 end the rest countdown early
  next                 finish this exercise and move on
  skipex               skip this exercise without logging it
  pause                pause and save
  resume               resume the clock
  done                 finish the workout and clear the session
  quit                 exit, keeping the session for later
`)
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repflow"
	}
	return filepath.Join(home, ".repflow")
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
