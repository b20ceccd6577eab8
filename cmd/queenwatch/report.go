package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"queenwatch/internal/core"
	"queenwatch/internal/processor"
	"queenwatch/internal/stats"
)

type gameReport struct {
	Game     int                  `json:"game"`
	White    string               `json:"white"`
	Black    string               `json:"black"`
	Result   string               `json:"result,omitempty"`
	Blunders []core.BlunderRecord `json:"blunders"`
	Error    string               `json:"error,omitempty"`
}

type report struct {
	RunID string       `json:"runId"`
	Games []gameReport `json:"games"`
	Tally *stats.Tally `json:"tally"`
}

func newReport(run *processor.Run, tally *stats.Tally) *report {
	r := &report{RunID: run.ID, Tally: tally}
	for _, res := range run.Results {
		g := gameReport{
			Game:     res.Index + 1,
			White:    res.Players.White,
			Black:    res.Players.Black,
			Result:   res.Result,
			Blunders: res.Blunders,
		}
		if g.Blunders == nil {
			g.Blunders = []core.BlunderRecord{}
		}
		if res.Err != nil {
			g.Error = res.Err.Error()
		}
		r.Games = append(r.Games, g)
	}
	return r
}

func (r *report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *report) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Game\tMove\tPlayer\tSAN\tBefore\tAfter\tChange")
	fmt.Fprintln(tw, strings.Repeat("-", 80))

	for _, g := range r.Games {
		for _, b := range g.Blunders {
			dots := "."
			if b.Color == core.ColorBlack {
				dots = "..."
			}
			fmt.Fprintf(tw, "%d\t%d%s\t%s\t%s\t%d\t%d\t%d\n",
				g.Game,
				b.MoveNumber, dots,
				b.Player,
				b.Move,
				b.EvalBefore, b.EvalAfter, b.EvalChange,
			)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, g := range r.Games {
		if g.Error != "" {
			fmt.Fprintf(w, "game %d failed: %s\n", g.Game, g.Error)
		}
	}

	who := "all players"
	if r.Tally.Player != "" {
		who = r.Tally.Player
	}
	_, err := fmt.Fprintf(w, "\n%s: %s\nrun %s\n", who, r.Tally, r.RunID)
	return err
}
