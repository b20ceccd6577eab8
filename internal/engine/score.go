package engine

import (
	"fmt"
	"strconv"
	"strings"

	"queenwatch/internal/core"
)

// searchScore is the last score reported during a search, relative to the side to move
type searchScore struct {
	cp     int
	mate   int
	isMate bool
	depth  int
}

// parseSearch extracts the final score from the output of one "go" command.
// Bound scores (lowerbound/upperbound) are skipped as they are not exact.
func parseSearch(lines []string) (searchScore, error) {
	var (
		result searchScore
		found  bool
	)

	for _, line := range lines {
		if !strings.HasPrefix(line, "info ") {
			continue
		}
		s, ok := parseInfo(line)
		if ok {
			result = s
			found = true
		}
	}

	if !found {
		return searchScore{}, fmt.Errorf("%w: no score in engine output", core.ErrEvaluationIndeterminate)
	}
	return result, nil
}

// parseInfo reads "depth" and "score cp|mate" from one info line
func parseInfo(line string) (searchScore, bool) {
	var (
		s        searchScore
		hasScore bool
	)

	fields := strings.Fields(line)
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					s.depth = n
				}
				i++
			}
		case "score":
			if i+2 >= len(fields) {
				return searchScore{}, false
			}
			n, err := strconv.Atoi(fields[i+2])
			if err != nil {
				return searchScore{}, false
			}
			switch fields[i+1] {
			case "cp":
				s.cp = n
			case "mate":
				s.mate = n
				s.isMate = true
			default:
				return searchScore{}, false
			}
			hasScore = true
			i += 2
		case "lowerbound", "upperbound":
			return searchScore{}, false
		case "pv", "string":
			// rest of the line is moves or free text
			return s, hasScore
		}
	}
	return s, hasScore
}

// forWhite converts a side-to-move score into White's point of view.
// "mate 0" and negative mates mean the side to move is getting mated.
func (s searchScore) forWhite(turn core.Color) core.Evaluation {
	if s.isMate {
		winner := turn
		if s.mate <= 0 {
			winner = core.OppositeColor(turn)
		}
		return core.MateFor(winner, s.mate)
	}
	if turn == core.ColorBlack {
		return core.Centipawns(-s.cp)
	}
	return core.Centipawns(s.cp)
}
