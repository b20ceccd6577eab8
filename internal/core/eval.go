package core

import "fmt"

// MateScore replaces the centipawn value of a forced mate
const MateScore = 10000

// Evaluation is an engine score from White's point of view.
// For forced mates CP holds +MateScore or -MateScore and Mate the signed
// distance in moves (positive when White mates).
type Evaluation struct {
	CP     int  `json:"cp"`
	Mate   int  `json:"mate,omitempty"`
	IsMate bool `json:"isMate,omitempty"`
}

func Centipawns(cp int) Evaluation {
	return Evaluation{CP: cp}
}

// MateFor builds a forced mate evaluation won by winner in the given number of moves
func MateFor(winner Color, moves int) Evaluation {
	if moves < 0 {
		moves = -moves
	}
	if winner == ColorWhite {
		return Evaluation{CP: MateScore, Mate: moves, IsMate: true}
	}
	return Evaluation{CP: -MateScore, Mate: -moves, IsMate: true}
}

// Score returns the value used for arithmetic, mates already substituted
func (e Evaluation) Score() int {
	return e.CP
}

func (e Evaluation) String() string {
	if e.IsMate {
		return fmt.Sprintf("#%d", e.Mate)
	}
	sign := "+"
	cp := e.CP
	if cp < 0 {
		sign = "-"
		cp = -cp
	}
	return fmt.Sprintf("%s%d.%02d", sign, cp/100, cp%100)
}
