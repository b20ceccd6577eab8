package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"

	"queenwatch/internal/core"
)

// Game is a decoded PGN game: starting position, main line and headers
type Game struct {
	Players core.Players
	Result  string
	initial *chess.Position
	moves   []*chess.Move
	tags    map[string]string
}

// Decode parses a single PGN game. Failures wrap core.ErrMalformedGame.
func Decode(text string) (*Game, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty game text", core.ErrMalformedGame)
	}

	pgn, err := chess.PGN(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedGame, err)
	}
	cg := chess.NewGame(pgn)

	positions := cg.Positions()
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no starting position", core.ErrMalformedGame)
	}

	moves := cg.Moves()
	if len(cg.TagPairs()) == 0 && len(moves) == 0 {
		return nil, fmt.Errorf("%w: no tag pairs and no moves", core.ErrMalformedGame)
	}
	// the parser stops quietly at the first token it cannot read
	if tokens := moveTokens(text); len(tokens) > len(moves) {
		return nil, fmt.Errorf("%w: unreadable move %q after ply %d", core.ErrMalformedGame, tokens[len(moves)], len(moves))
	}

	g := &Game{
		initial: positions[0],
		moves:   moves,
		tags:    make(map[string]string),
	}
	for _, tp := range cg.TagPairs() {
		g.tags[tp.Key] = tp.Value
	}

	g.Players = core.Players{
		White: g.Tag("White"),
		Black: g.Tag("Black"),
	}
	g.Result = g.Tag("Result")
	if g.Result == "" {
		g.Result = cg.Outcome().String()
	}

	return g, nil
}

// Initial returns the position before the first move
func (g *Game) Initial() *chess.Position {
	return g.initial
}

// Moves returns the main line, one move per ply
func (g *Game) Moves() []*chess.Move {
	return g.moves
}

func (g *Game) Len() int {
	return len(g.moves)
}

// Tag returns a header value or "" when absent
func (g *Game) Tag(key string) string {
	return g.tags[key]
}

// Queens counts the queens of both colors on the board
func Queens(pos *chess.Position) int {
	n := 0
	for _, piece := range pos.Board().SquareMap() {
		if piece.Type() == chess.Queen {
			n++
		}
	}
	return n
}

// SAN encodes a move in standard algebraic notation from pos
func SAN(pos *chess.Position, move *chess.Move) string {
	return chess.AlgebraicNotation{}.Encode(pos, move)
}

// Mover returns the color to move in pos
func Mover(pos *chess.Position) core.Color {
	if pos.Turn() == chess.Black {
		return core.ColorBlack
	}
	return core.ColorWhite
}

// MoveNumber returns the full-move counter of pos
func MoveNumber(pos *chess.Position) int {
	fields := strings.Fields(pos.String())
	if len(fields) != 6 {
		return 0
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil {
		return 0
	}
	return n
}
