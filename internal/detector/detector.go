// Package detector finds queen blunders: plies where the number of queens on
// the board drops while the evaluation turns against the side that moved.
package detector

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/notnil/chess"

	"queenwatch/internal/core"
	"queenwatch/internal/engine"
	"queenwatch/internal/game"
)

const (
	DefaultDepth = 15
	// DefaultThreshold is in centipawns, the unit the engine reports
	DefaultThreshold = 5
)

// Evaluator scores a position from White's point of view
type Evaluator interface {
	Evaluate(ctx context.Context, pos *chess.Position, depth int) (core.Evaluation, error)
}

// Options bounds the search and sets the blunder threshold
type Options struct {
	Depth     int `validate:"min=1"`
	Threshold int `validate:"min=1"`
}

func DefaultOptions() Options {
	return Options{Depth: DefaultDepth, Threshold: DefaultThreshold}
}

var validate = validator.New()

func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// state is carried from one ply to the next
type state struct {
	prevEval int
}

type walker struct {
	g    *game.Game
	ev   Evaluator
	opts Options
}

// Detect walks the main line of g once and returns the queen blunders in ply
// order. The evaluator is called once per ply plus once for the starting
// position; any evaluator error aborts the walk.
func Detect(ctx context.Context, g *game.Game, ev Evaluator, opts Options) ([]core.BlunderRecord, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	moves := g.Moves()
	if len(moves) == 0 {
		return nil, nil
	}

	initial, err := ev.Evaluate(ctx, g.Initial(), opts.Depth)
	if err != nil {
		return nil, fmt.Errorf("evaluate initial position: %w", err)
	}

	var (
		w        = walker{g: g, ev: ev, opts: opts}
		blunders []core.BlunderRecord
		st       = state{prevEval: initial.Score()}
		before   = g.Initial()
	)

	for i, move := range moves {
		after, next, rec, err := w.step(ctx, i, before, move, st)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			blunders = append(blunders, *rec)
		}
		before, st = after, next
	}

	return blunders, nil
}

// step applies one move and classifies it
func (w walker) step(ctx context.Context, ply int, before *chess.Position, move *chess.Move, st state) (*chess.Position, state, *core.BlunderRecord, error) {
	queensBefore := game.Queens(before)

	after := before.Update(move)
	queensAfter := game.Queens(after)

	current, err := w.ev.Evaluate(ctx, after, w.opts.Depth)
	if err != nil {
		return nil, st, nil, fmt.Errorf("evaluate ply %d: %w", ply+1, err)
	}
	currentEval := current.Score()

	mover := game.Mover(before)
	change := perspective(mover) * (currentEval - st.prevEval)

	next := state{prevEval: currentEval}

	if queensAfter >= queensBefore || change >= -w.opts.Threshold {
		return after, next, nil, nil
	}

	rec := &core.BlunderRecord{
		Ply:            ply + 1,
		MoveNumber:     game.MoveNumber(before),
		Player:         w.g.Players.NameFor(mover),
		Color:          mover,
		Move:           game.SAN(before, move),
		PositionBefore: before.String(),
		PositionAfter:  after.String(),
		EvalBefore:     st.prevEval,
		EvalAfter:      currentEval,
		EvalChange:     change,
	}
	return after, next, rec, nil
}

// perspective is -1 when the reference side moved and +1 otherwise.
// It assumes evaluations are expressed for core.ReferenceColor.
func perspective(mover core.Color) int {
	if mover == core.ReferenceColor {
		return -1
	}
	return 1
}

// DetectPGN decodes gameText, runs the engine at evaluatorPath for the
// duration of the analysis and returns the blunders found.
func DetectPGN(ctx context.Context, gameText, evaluatorPath string, opts Options) ([]core.BlunderRecord, error) {
	path, err := engine.Resolve(evaluatorPath)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g, err := game.Decode(gameText)
	if err != nil {
		return nil, err
	}

	eng, err := engine.Start(ctx, path)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	return Detect(ctx, g, eng, opts)
}
