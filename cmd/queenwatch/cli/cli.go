// Package cli implements the `queenwatch db` maintenance commands
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"queenwatch/internal/core"
	"queenwatch/internal/storage"
)

// Run is the entry point for the db mini-app
func Run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, blunders")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:], out)
	case "delete":
		return runDelete(args[1:], out)
	case "query":
		return runQuery(args[1:], out)
	case "blunders":
		return runBlunders(args[1:], out)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

// openStore parses the common -path flag plus any extra flags registered by
// the caller
func openStore(name string, args []string, register func(fs *flag.FlagSet)) (*storage.Store, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if register != nil {
		register(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *path == "" {
		return nil, fmt.Errorf("database path required")
	}

	store, err := storage.NewStore(*path, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runInit(args []string, out io.Writer) error {
	store, err := openStore("init", args, nil)
	if err != nil {
		return err
	}
	defer store.Close()
	path := store.Path()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Fprintf(out, "Database initialized at: %s\n", path)
	return nil
}

func runDelete(args []string, out io.Writer) error {
	store, err := openStore("delete", args, nil)
	if err != nil {
		return err
	}
	path := store.Path()

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Fprintf(out, "Database deleted: %s\n", path)
	return nil
}

func runQuery(args []string, out io.Writer) error {
	var runID, player *string
	store, err := openStore("query", args, func(fs *flag.FlagSet) {
		runID = fs.String("runId", "", "Run ID to filter (optional, * for all)")
		player = fs.String("player", "", "Player name to filter (optional, * for all)")
	})
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.QueryRuns(*runID, *player)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Run ID\tPlayer\tDepth\tThreshold\tGames\tFailed\tBlunders\tStarted\tDuration")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range runs {
		player := r.Player
		if player == "" {
			player = "-"
		}
		duration := "running"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d/%d\t%d\t%d\t%s\t%s\n",
			r.RunID,
			player,
			r.Depth,
			r.Threshold,
			r.GamesAnalyzed, r.GamesTotal,
			r.GamesFailed,
			r.Blunders,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			duration,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d run(s)\n", len(runs))
	return nil
}

func runBlunders(args []string, out io.Writer) error {
	var runID *string
	store, err := openStore("blunders", args, func(fs *flag.FlagSet) {
		runID = fs.String("runId", "", "Run ID (required)")
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if *runID == "" {
		return fmt.Errorf("run ID required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		return err
	}

	blunders, err := store.GetBlunders(*runID)
	if err != nil {
		return err
	}

	if len(blunders) == 0 {
		fmt.Fprintln(out, "No queen blunders recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Move\tPlayer\tSAN\tBefore\tAfter\tChange\tPosition")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, b := range blunders {
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.MoveNumber, moveSuffix(b.Color),
			b.Player,
			b.Move,
			b.EvalBefore, b.EvalAfter, b.EvalChange,
			b.PositionBefore,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d blunder(s)\n", len(blunders))
	return nil
}

// moveSuffix renders "." for White's moves and "..." for Black's
func moveSuffix(c core.Color) string {
	if c == core.ColorBlack {
		return "..."
	}
	return "."
}
