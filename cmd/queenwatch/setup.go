package main

import (
	"go.uber.org/zap"

	"queenwatch/internal/cache"
	"queenwatch/internal/config"
	"queenwatch/internal/detector"
	"queenwatch/internal/engine"
	"queenwatch/internal/processor"
	"queenwatch/internal/storage"
)

// components are the long-lived pieces shared by analyze and serve
type components struct {
	analyzer *processor.Analyzer
	store    *storage.Store
	cache    *cache.Store
	log      *zap.SugaredLogger
}

func setup(cfg *config.Config, log *zap.SugaredLogger) (*components, error) {
	path, err := engine.Resolve(cfg.EnginePath)
	if err != nil {
		return nil, err
	}

	c := &components{log: log}
	c.analyzer = processor.NewAnalyzer(processor.EngineFactory(path), cfg.Workers, cfg.DetectorOptions(), log)

	if cfg.CacheDir != "" {
		log.Infow("evaluation cache enabled", "dir", cfg.CacheDir)
		c.cache, err = cache.Open(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		c.analyzer.WithEvaluatorWrapper(c.wrap)
	}

	if cfg.StoragePath != "" {
		log.Infow("persistent storage enabled", "path", cfg.StoragePath)
		c.store, err = storage.NewStore(cfg.StoragePath, cfg.Dev, log)
		if err != nil {
			c.close()
			return nil, err
		}
		if err := c.store.InitDB(); err != nil {
			c.close()
			return nil, err
		}
		c.analyzer.WithRecorder(c.store)
	}

	return c, nil
}

func (c *components) wrap(ev detector.Evaluator) detector.Evaluator {
	return c.cache.Wrap(ev)
}

func (c *components) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.Warnw("failed to close storage cleanly", "error", err)
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			c.log.Warnw("failed to close evaluation cache", "error", err)
		}
	}
}
