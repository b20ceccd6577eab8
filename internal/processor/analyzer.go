package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"queenwatch/internal/core"
	"queenwatch/internal/detector"
	"queenwatch/internal/storage"
)

// Recorder persists analysis runs
type Recorder interface {
	RecordRun(record storage.RunRecord)
	RecordGame(record storage.GameRecord, blunders []core.BlunderRecord)
	FinishRun(runID string, at time.Time)
}

// Run is the outcome of one batch
type Run struct {
	ID         string
	Player     string
	Options    detector.Options
	Results    []GameResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Analyzer runs batches through a fresh pool and records them when a
// recorder is attached
type Analyzer struct {
	factory SessionFactory
	workers int
	opts    detector.Options
	wrap    func(detector.Evaluator) detector.Evaluator
	rec     Recorder
	log     *zap.SugaredLogger
}

func NewAnalyzer(factory SessionFactory, workers int, opts detector.Options, log *zap.SugaredLogger) *Analyzer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Analyzer{
		factory: factory,
		workers: workers,
		opts:    opts,
		log:     log,
	}
}

func (a *Analyzer) WithRecorder(rec Recorder) *Analyzer {
	a.rec = rec
	return a
}

func (a *Analyzer) WithEvaluatorWrapper(wrap func(detector.Evaluator) detector.Evaluator) *Analyzer {
	a.wrap = wrap
	return a
}

// Options returns the default detector options
func (a *Analyzer) Options() detector.Options {
	return a.opts
}

// AnalyzeBatch analyses games with opts. player only labels the run.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, games []string, opts detector.Options, player string, onResult func(GameResult)) *Run {
	run := &Run{
		ID:        storage.NewRunID(),
		Player:    player,
		Options:   opts,
		StartedAt: time.Now().UTC(),
	}

	if a.rec != nil {
		a.rec.RecordRun(storage.RunRecord{
			RunID:      run.ID,
			Player:     player,
			Depth:      opts.Depth,
			Threshold:  opts.Threshold,
			GamesTotal: len(games),
			StartedAt:  run.StartedAt,
		})
	}

	a.log.Infow("analysis started", "run", run.ID, "games", len(games), "depth", opts.Depth, "threshold", opts.Threshold)

	pool := NewPool(a.factory, a.workers, opts, a.log)
	if a.wrap != nil {
		pool.WithEvaluatorWrapper(a.wrap)
	}

	run.Results = pool.Run(ctx, games, func(res GameResult) {
		a.record(run.ID, res)
		if onResult != nil {
			onResult(res)
		}
	})

	run.FinishedAt = time.Now().UTC()
	if a.rec != nil {
		a.rec.FinishRun(run.ID, run.FinishedAt)
	}

	a.log.Infow("analysis finished", "run", run.ID, "elapsed", run.FinishedAt.Sub(run.StartedAt))
	return run
}

func (a *Analyzer) record(runID string, res GameResult) {
	if a.rec == nil {
		return
	}
	g := storage.GameRecord{
		RunID:     runID,
		GameIndex: res.Index,
		White:     res.Players.White,
		Black:     res.Players.Black,
		Result:    res.Result,
	}
	if res.Err != nil {
		g.Error = res.Err.Error()
	}
	a.rec.RecordGame(g, res.Blunders)
}

// Analyze handles a single-game API request. Zero depth or threshold fall
// back to the analyzer defaults.
func (a *Analyzer) Analyze(ctx context.Context, req core.AnalyzeRequest) (*core.AnalyzeResponse, error) {
	opts := a.opts
	if req.Depth > 0 {
		opts.Depth = req.Depth
	}
	if req.Threshold > 0 {
		opts.Threshold = req.Threshold
	}

	run := a.AnalyzeBatch(ctx, []string{req.PGN}, opts, req.Player, nil)
	res := run.Results[0]
	if res.Err != nil {
		return nil, res.Err
	}

	blunders := res.Blunders
	if blunders == nil {
		blunders = []core.BlunderRecord{}
	}
	return &core.AnalyzeResponse{
		RunID:    run.ID,
		Players:  res.Players,
		Result:   res.Result,
		Blunders: blunders,
	}, nil
}
