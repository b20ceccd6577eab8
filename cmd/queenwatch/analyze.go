package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"queenwatch/internal/config"
	"queenwatch/internal/processor"
	"queenwatch/internal/progress"
	"queenwatch/internal/source"
	"queenwatch/internal/stats"
)

func runAnalyze(args []string, stdout io.Writer) error {
	s := newSettings("analyze")
	player := s.fs.String("player", "", "Only count games and blunders of this player")
	jsonOut := s.fs.Bool("json", false, "Print the report as JSON")

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := s.load(func(cfg *config.Config, f *flag.Flag) {
		if f.Name == "player" {
			cfg.Player = *player
		}
	})
	if err != nil {
		return err
	}

	log := NewLogger(cfg.Dev)
	defer log.Sync()

	games, err := source.ReadFiles(s.fs.Args()...)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		return errors.New("no games found")
	}

	c, err := setup(cfg, log)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prog := progress.New(os.Stderr, len(games), log)
	run := c.analyzer.AnalyzeBatch(ctx, games, cfg.DetectorOptions(), cfg.Player, func(res processor.GameResult) {
		prog.Game(res.Index, len(res.Blunders), res.Err)
	})
	prog.Finish()

	if c.cache != nil {
		hits, misses := c.cache.Stats()
		log.Infow("evaluation cache", "hits", hits, "misses", misses)
	}

	tally := stats.New(cfg.Player)
	for _, res := range run.Results {
		if res.Err != nil {
			tally.AddFailure()
			continue
		}
		tally.AddGame(res.Players, res.Blunders)
	}

	rep := newReport(run, tally)
	if *jsonOut {
		return rep.writeJSON(stdout)
	}
	return rep.writeText(stdout)
}
