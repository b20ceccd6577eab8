package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/notnil/chess"

	"queenwatch/internal/core"
)

const fakeEngineEnv = "QUEENWATCH_FAKE_UCI"

// TestFakeUCIEngine is not a real test: when fakeEngineEnv is set it acts as
// a minimal UCI engine on stdin/stdout. Scores are +35 for the side to move,
// "nomove" positions report no score and "die" makes it exit mid-search.
func TestFakeUCIEngine(t *testing.T) {
	mode := os.Getenv(fakeEngineEnv)
	if mode == "" {
		return
	}

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := in.Text()
		switch {
		case line == "uci":
			fmt.Println("id name fake")
			fmt.Println("uciok")
		case line == "isready":
			fmt.Println("readyok")
		case line == "quit":
			os.Exit(0)
		case strings.HasPrefix(line, "go"):
			switch mode {
			case "die":
				os.Exit(3)
			case "silent":
				fmt.Println("info string thinking")
				fmt.Println("bestmove (none)")
			case "hang":
				// never answers
			default:
				fmt.Println("info depth 1 score cp 12 pv e2e4")
				fmt.Println("info depth 2 score cp 35 nodes 20 pv e2e4 e7e5")
				fmt.Println("bestmove e2e4")
			}
		}
	}
	os.Exit(0)
}

func startFake(t *testing.T, mode string) *UCI {
	t.Helper()
	t.Setenv(fakeEngineEnv, mode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := Start(ctx, os.Args[0], "-test.run=^TestFakeUCIEngine$")
	if err != nil {
		t.Fatalf("start fake engine: %v", err)
	}
	t.Cleanup(func() { u.Close() })
	return u
}

func TestEvaluateNormalizesToWhite(t *testing.T) {
	u := startFake(t, "ok")
	ctx := context.Background()

	start := chess.NewGame().Position()
	got, err := u.Evaluate(ctx, start, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score() != 35 {
		t.Errorf("white to move = %d, want 35", got.Score())
	}

	afterE4 := start.Update(chess.NewGame().ValidMoves()[0])
	got, err = u.Evaluate(ctx, afterE4, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score() != -35 {
		t.Errorf("black to move = %d, want -35", got.Score())
	}

	if err := u.NewGame(ctx); err != nil {
		t.Fatalf("new game: %v", err)
	}
}

func TestEvaluateIndeterminate(t *testing.T) {
	u := startFake(t, "silent")

	_, err := u.Evaluate(context.Background(), chess.NewGame().Position(), 5)
	if !errors.Is(err, core.ErrEvaluationIndeterminate) {
		t.Fatalf("err = %v, want ErrEvaluationIndeterminate", err)
	}
}

func TestEvaluateEngineCrash(t *testing.T) {
	u := startFake(t, "die")

	_, err := u.Evaluate(context.Background(), chess.NewGame().Position(), 5)
	if !errors.Is(err, core.ErrEvaluatorUnavailable) {
		t.Fatalf("err = %v, want ErrEvaluatorUnavailable", err)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	u := startFake(t, "hang")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := u.Evaluate(ctx, chess.NewGame().Position(), 5)
	if err == nil {
		t.Fatal("expected error from cancelled search")
	}
}

func TestEvaluateAfterClose(t *testing.T) {
	u := startFake(t, "ok")
	if err := u.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err := u.Evaluate(context.Background(), chess.NewGame().Position(), 5)
	if !errors.Is(err, core.ErrEvaluatorUnavailable) {
		t.Fatalf("err = %v, want ErrEvaluatorUnavailable", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), filepath.Join(t.TempDir(), "no-such-engine"))
	if !errors.Is(err, core.ErrEvaluatorUnavailable) {
		t.Fatalf("err = %v, want ErrEvaluatorUnavailable", err)
	}
}

func TestResolve(t *testing.T) {
	if got, err := Resolve(""); err != nil || got != DefaultEngine {
		t.Errorf("Resolve(\"\") = %q, %v", got, err)
	}
	if got, err := Resolve(DefaultEngine); err != nil || got != DefaultEngine {
		t.Errorf("Resolve(default) = %q, %v", got, err)
	}
	if got, err := Resolve(os.Args[0]); err != nil || got != os.Args[0] {
		t.Errorf("Resolve(test binary) = %q, %v", got, err)
	}

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("not an engine"), 0o644); err != nil {
		t.Fatal(err)
	}

	for name, path := range map[string]string{
		"missing":        filepath.Join(dir, "stockfish-missing"),
		"directory":      dir,
		"not executable": notes,
	} {
		if _, err := Resolve(path); !errors.Is(err, core.ErrEvaluatorNotFound) {
			t.Errorf("%s: err = %v, want ErrEvaluatorNotFound", name, err)
		}
	}
}

// brokenPipe accepts a fixed number of writes and fails afterwards
type brokenPipe struct {
	writes int
}

func (b *brokenPipe) Write(p []byte) (int, error) {
	if b.writes == 0 {
		return 0, errors.New("broken pipe")
	}
	b.writes--
	return len(p), nil
}

func (b *brokenPipe) Close() error { return nil }

func TestEvaluateCancelledStopNotSent(t *testing.T) {
	// position and go reach the engine, stop does not
	u := &UCI{stdin: &brokenPipe{writes: 2}, lines: make(chan string)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := u.Evaluate(ctx, chess.NewGame().Position(), 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if u.stopped {
		t.Error("session waits for a bestmove although stop was never sent")
	}
}
