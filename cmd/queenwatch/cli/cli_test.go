package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"queenwatch/internal/core"
	"queenwatch/internal/storage"
)

func TestDBCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	var out bytes.Buffer

	if err := Run([]string{"init", "-path", path}, &out); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out.String(), "Database initialized") {
		t.Errorf("init output = %q", out.String())
	}

	store, err := storage.NewStore(path, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	runID := storage.NewRunID()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.RecordRun(storage.RunRecord{RunID: runID, Player: "Anonymous", Depth: 15, Threshold: 5, GamesTotal: 1, StartedAt: start})
	store.RecordGame(storage.GameRecord{RunID: runID, White: "Anonymous", Black: "lichess AI level 8"}, []core.BlunderRecord{{
		Ply: 8, MoveNumber: 4, Player: "lichess AI level 8", Color: core.ColorBlack, Move: "Bxg4",
		PositionBefore: "rnbqkbnr/pp2pppp/2p5/8/3pP1Q1/2NP4/PPP2PPP/R1B1KBNR b KQkq - 1 4",
		PositionAfter:  "rn1qkbnr/pp2pppp/2p5/8/3pP1b1/2NP4/PPP2PPP/R1B1KBNR w KQkq - 0 5",
		EvalBefore:     30, EvalAfter: -850, EvalChange: -880,
	}})
	store.FinishRun(runID, start.Add(90*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out.Reset()
	if err := Run([]string{"query", "-path", path, "-player", "Anonymous"}, &out); err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, want := range []string{runID, "Anonymous", "1/1", "1m30s", "Found 1 run(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("query output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := Run([]string{"query", "-path", path, "-player", "nobody"}, &out); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(out.String(), "No runs found") {
		t.Errorf("query output = %q", out.String())
	}

	out.Reset()
	if err := Run([]string{"blunders", "-path", path, "-runId", runID}, &out); err != nil {
		t.Fatalf("blunders: %v", err)
	}
	for _, want := range []string{"4...", "Bxg4", "-880", "Found 1 blunder(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("blunders output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := Run([]string{"delete", "-path", path}, &out); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("database still present: %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	var out bytes.Buffer
	tests := [][]string{
		nil,
		{"bogus"},
		{"init"},
		{"query"},
		{"blunders", "-path", filepath.Join(t.TempDir(), "x.db")},
	}
	for _, args := range tests {
		if err := Run(args, &out); err == nil {
			t.Errorf("Run(%q) succeeded", args)
		}
	}
}
