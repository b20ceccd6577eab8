package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/notnil/chess"

	"queenwatch/internal/core"
)

type countingEvaluator struct {
	calls int
	eval  core.Evaluation
	err   error
}

func (e *countingEvaluator) Evaluate(context.Context, *chess.Position, int) (core.Evaluation, error) {
	e.calls++
	return e.eval, e.err
}

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCachedEvaluator(t *testing.T) {
	s := openTest(t)
	next := &countingEvaluator{eval: core.MateFor(core.ColorBlack, 3)}
	ev := s.Wrap(next)
	pos := chess.NewGame().Position()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := ev.Evaluate(ctx, pos, 12)
		if err != nil {
			t.Fatal(err)
		}
		if got != next.eval {
			t.Fatalf("got %+v, want %+v", got, next.eval)
		}
	}
	if next.calls != 1 {
		t.Errorf("engine calls = %d, want 1", next.calls)
	}
	if hits, misses := s.Stats(); hits != 2 || misses != 1 {
		t.Errorf("store hits/misses = %d/%d, want 2/1", hits, misses)
	}

	// other depth is another key
	if _, err := ev.Evaluate(ctx, pos, 13); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("engine calls = %d, want 2", next.calls)
	}
}

func TestCacheKeyMoveCounters(t *testing.T) {
	s := openTest(t)

	stored, _ := chess.FEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if err := s.Put(chess.NewGame(stored).Position(), 10, core.Centipawns(42)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		fen   string
		found bool
	}{
		{"other full-move number", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 30", true},
		{"other halfmove clock", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 90 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fen, err := chess.FEN(tt.fen)
			if err != nil {
				t.Fatal(err)
			}
			got, ok, err := s.Get(chess.NewGame(fen).Position(), 10)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && got.Score() != 42 {
				t.Errorf("got %+v, want 42", got)
			}
		})
	}
}

func TestCachedEvaluatorDoesNotStoreErrors(t *testing.T) {
	s := openTest(t)
	boom := errors.New("boom")
	next := &countingEvaluator{err: boom}
	ev := s.Wrap(next)
	pos := chess.NewGame().Position()

	if _, err := ev.Evaluate(context.Background(), pos, 5); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, ok, _ := s.Get(pos, 5); ok {
		t.Error("failed evaluation was cached")
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	pos := chess.NewGame().Position()
	if err := s.Put(pos, 8, core.Centipawns(20)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, ok, err := s.Get(pos, 8)
	if err != nil || !ok || got.Score() != 20 {
		t.Errorf("reopened cache: %+v %v %v", got, ok, err)
	}
}
