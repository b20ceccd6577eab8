package main

import (
	"flag"

	"queenwatch/internal/config"
)

// settings binds the flags shared by analyze and serve. Only flags given on
// the command line override the loaded configuration.
type settings struct {
	fs          *flag.FlagSet
	configPath  *string
	enginePath  *string
	depth       *int
	threshold   *int
	workers     *int
	cacheDir    *string
	storagePath *string
	dev         *bool
}

func newSettings(name string) *settings {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &settings{
		fs:          fs,
		configPath:  fs.String("config", "", "Configuration file (yaml, json or toml)"),
		enginePath:  fs.String("engine", "", "UCI engine binary (default: stockfish on PATH)"),
		depth:       fs.Int("depth", 0, "Search depth per position"),
		threshold:   fs.Int("threshold", 0, "Evaluation drop in centipawns that makes a queen loss a blunder"),
		workers:     fs.Int("workers", 0, "Games analysed in parallel, one engine each"),
		cacheDir:    fs.String("cache", "", "Evaluation cache directory (disabled if empty)"),
		storagePath: fs.String("storage-path", "", "Path to SQLite database file (disables persistence if empty)"),
		dev:         fs.Bool("dev", false, "Development mode (verbose logging, relaxed rate limits)"),
	}
}

// load reads the configuration and applies explicitly set flags on top
func (s *settings) load(extra func(cfg *config.Config, f *flag.Flag)) (*config.Config, error) {
	cfg, err := config.Load(*s.configPath)
	if err != nil {
		return nil, err
	}

	s.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "engine":
			cfg.EnginePath = *s.enginePath
		case "depth":
			cfg.Depth = *s.depth
		case "threshold":
			cfg.Threshold = *s.threshold
		case "workers":
			cfg.Workers = *s.workers
		case "cache":
			cfg.CacheDir = *s.cacheDir
		case "storage-path":
			cfg.StoragePath = *s.storagePath
		case "dev":
			cfg.Dev = *s.dev
		default:
			if extra != nil {
				extra(cfg, f)
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
