package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"queenwatch/internal/core"
	"queenwatch/internal/detector"
	"queenwatch/internal/storage"
)

type memRecorder struct {
	mu       sync.Mutex
	runs     []storage.RunRecord
	games    []storage.GameRecord
	blunders int
	finished map[string]time.Time
}

func (m *memRecorder) RecordRun(r storage.RunRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
}

func (m *memRecorder) RecordGame(g storage.GameRecord, b []core.BlunderRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, g)
	m.blunders += len(b)
}

func (m *memRecorder) FinishRun(runID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished == nil {
		m.finished = make(map[string]time.Time)
	}
	m.finished[runID] = at
}

func TestAnalyzeBatchRecords(t *testing.T) {
	f := &fakeFactory{}
	rec := &memRecorder{}
	a := NewAnalyzer(f.new, 2, detector.DefaultOptions(), nil).WithRecorder(rec)

	run := a.AnalyzeBatch(context.Background(), []string{queenLost, "1. e5 *", quiet}, detector.DefaultOptions(), "Anonymous", nil)

	if len(rec.runs) != 1 || rec.runs[0].RunID != run.ID || rec.runs[0].GamesTotal != 3 || rec.runs[0].Player != "Anonymous" {
		t.Fatalf("runs = %+v", rec.runs)
	}
	if len(rec.games) != 3 {
		t.Fatalf("games recorded = %d, want 3", len(rec.games))
	}
	failed := 0
	for _, g := range rec.games {
		if g.Error != "" {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed games = %d, want 1", failed)
	}
	if rec.blunders != 1 {
		t.Errorf("blunders recorded = %d, want 1", rec.blunders)
	}
	if _, ok := rec.finished[run.ID]; !ok {
		t.Error("run not finished")
	}
}

func TestAnalyze(t *testing.T) {
	f := &fakeFactory{}
	a := NewAnalyzer(f.new, 1, detector.DefaultOptions(), nil)

	resp, err := a.Analyze(context.Background(), core.AnalyzeRequest{PGN: queenLost})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.RunID == "" || resp.Result != "0-1" || resp.Players.Black != "lichess AI level 8" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Blunders) != 1 || resp.Blunders[0].Move != "Bxg4" {
		t.Errorf("blunders = %+v", resp.Blunders)
	}

	// a threshold above the swing suppresses the record
	resp, err = a.Analyze(context.Background(), core.AnalyzeRequest{PGN: queenLost, Threshold: 500})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.Blunders == nil || len(resp.Blunders) != 0 {
		t.Errorf("blunders = %#v, want empty slice", resp.Blunders)
	}
}

func TestAnalyzeMalformed(t *testing.T) {
	f := &fakeFactory{}
	a := NewAnalyzer(f.new, 1, detector.DefaultOptions(), nil)

	_, err := a.Analyze(context.Background(), core.AnalyzeRequest{PGN: "1. e5 *"})
	if !errors.Is(err, core.ErrMalformedGame) {
		t.Errorf("err = %v, want ErrMalformedGame", err)
	}
	if len(f.sessions) != 0 {
		t.Errorf("malformed game started %d sessions", len(f.sessions))
	}
}
