package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"queenwatch/internal/core"
	"queenwatch/internal/detector"
	"queenwatch/internal/engine"
	"queenwatch/internal/game"
)

const defaultWorkers = 2

// Session is one exclusively owned evaluator
type Session interface {
	detector.Evaluator
	NewGame(ctx context.Context) error
	Close() error
}

// SessionFactory acquires a fresh evaluator session
type SessionFactory func(ctx context.Context) (Session, error)

// EngineFactory starts UCI engine sessions from path
func EngineFactory(path string) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		u, err := engine.Start(ctx, path)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
}

// GameTask is one raw game waiting for analysis
type GameTask struct {
	Index int
	PGN   string
}

// GameResult contains the outcome of one game analysis
type GameResult struct {
	Index    int
	Players  core.Players
	Result   string
	Blunders []core.BlunderRecord
	Err      error
}

// Pool analyses independent games in parallel, one session per worker
type Pool struct {
	factory SessionFactory
	workers int
	opts    detector.Options
	wrap    func(detector.Evaluator) detector.Evaluator
	log     *zap.SugaredLogger
}

// NewPool creates a pool with the specified worker count
func NewPool(factory SessionFactory, workers int, opts detector.Options, log *zap.SugaredLogger) *Pool {
	if workers < 1 {
		workers = defaultWorkers
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pool{
		factory: factory,
		workers: workers,
		opts:    opts,
		log:     log,
	}
}

// WithEvaluatorWrapper decorates every worker session, e.g. with a cache
func (p *Pool) WithEvaluatorWrapper(wrap func(detector.Evaluator) detector.Evaluator) *Pool {
	p.wrap = wrap
	return p
}

// Run analyses games and returns one result per game in input order.
// onResult, when set, is called from a single goroutine as games finish.
func (p *Pool) Run(ctx context.Context, games []string, onResult func(GameResult)) []GameResult {
	results := make([]GameResult, len(games))
	if len(games) == 0 {
		return results
	}

	tasks := make(chan GameTask)
	out := make(chan GameResult)

	workers := p.workers
	if workers > len(games) {
		workers = len(games)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, i, tasks, out, &wg)
	}

	go func() {
		defer close(tasks)
		for i, pgn := range games {
			select {
			case tasks <- GameTask{Index: i, PGN: pgn}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	done := make([]bool, len(games))
	for res := range out {
		results[res.Index] = res
		done[res.Index] = true
		if onResult != nil {
			onResult(res)
		}
	}

	// games never dispatched because ctx ended
	for i := range results {
		if !done[i] {
			results[i] = GameResult{Index: i, Err: fmt.Errorf("game %d not analysed: %w", i+1, context.Cause(ctx))}
			if onResult != nil {
				onResult(results[i])
			}
		}
	}

	return results
}

// worker processes game tasks with its own session. The session is started
// on the first game and replaced after it becomes unavailable.
func (p *Pool) worker(ctx context.Context, id int, tasks <-chan GameTask, out chan<- GameResult, wg *sync.WaitGroup) {
	defer wg.Done()

	var sess Session
	defer func() {
		if sess != nil {
			if err := sess.Close(); err != nil {
				p.log.Warnw("closing evaluator session", "worker", id, "error", err)
			}
		}
	}()

	for task := range tasks {
		res := p.processTask(ctx, &sess, task)
		if res.Err != nil {
			p.log.Warnw("game analysis failed", "worker", id, "game", task.Index+1, "error", res.Err)
		}
		if errors.Is(res.Err, core.ErrEvaluatorUnavailable) && sess != nil {
			sess.Close()
			sess = nil
		}
		out <- res
	}
}

// processTask decodes and analyses a single game
func (p *Pool) processTask(ctx context.Context, sess *Session, task GameTask) GameResult {
	result := GameResult{Index: task.Index}

	g, err := game.Decode(task.PGN)
	if err != nil {
		result.Err = err
		return result
	}
	result.Players = g.Players
	result.Result = g.Result

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if *sess == nil {
		s, err := p.factory(ctx)
		if err != nil {
			result.Err = err
			return result
		}
		*sess = s
	} else if err := (*sess).NewGame(ctx); err != nil {
		result.Err = err
		return result
	}

	var ev detector.Evaluator = *sess
	if p.wrap != nil {
		ev = p.wrap(ev)
	}

	blunders, err := detector.Detect(ctx, g, ev, p.opts)
	if err != nil {
		result.Err = err
		return result
	}
	result.Blunders = blunders
	return result
}
