// Package stats aggregates per-game detector output for one player.
package stats

import (
	"fmt"

	"queenwatch/internal/core"
)

// Tally counts games for a single player. Failed games are kept apart and
// never touch the streaks.
type Tally struct {
	Player           string `json:"player"`
	Total            int    `json:"total"`
	Analyzed         int    `json:"analyzed"`
	Failed           int    `json:"failed"`
	Skipped          int    `json:"skipped"`
	GamesWithBlunder int    `json:"gamesWithBlunder"`
	Blunders         int    `json:"blunders"`
	Streak           int    `json:"streak"`
	LongestStreak    int    `json:"longestStreak"`
}

func New(player string) *Tally {
	return &Tally{Player: player}
}

// AddGame records an analysed game. players are the game's header names;
// games the player did not take part in are counted as skipped.
func (t *Tally) AddGame(players core.Players, blunders []core.BlunderRecord) {
	t.Total++
	if t.Player != "" && !players.Has(t.Player) {
		t.Skipped++
		return
	}
	t.Analyzed++

	own := 0
	for _, b := range blunders {
		if t.Player == "" || b.Player == t.Player {
			own++
		}
	}

	if own > 0 {
		t.Blunders += own
		t.GamesWithBlunder++
		t.Streak = 0
		return
	}

	t.Streak++
	if t.Streak > t.LongestStreak {
		t.LongestStreak = t.Streak
	}
}

// AddFailure records a game whose analysis did not complete
func (t *Tally) AddFailure() {
	t.Total++
	t.Failed++
}

// Rate is the share of analysed games containing a blunder, in percent
func (t *Tally) Rate() float64 {
	if t.Analyzed == 0 {
		return 0
	}
	return float64(t.GamesWithBlunder) / float64(t.Analyzed) * 100
}

func (t *Tally) String() string {
	return fmt.Sprintf("blundered the queen in %d / %d games (%.1f%%), %d failed, current streak %d, longest streak %d",
		t.GamesWithBlunder, t.Analyzed, t.Rate(), t.Failed, t.Streak, t.LongestStreak)
}
