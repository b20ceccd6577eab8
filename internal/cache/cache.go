// Package cache keeps engine evaluations on disk so repeated positions (the
// same opening played in many games) are searched once per depth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/notnil/chess"

	"queenwatch/internal/core"
)

// Evaluator is the scoring capability being cached
type Evaluator interface {
	Evaluate(ctx context.Context, pos *chess.Position, depth int) (core.Evaluation, error)
}

// Store wraps BadgerDB for evaluation lookups
type Store struct {
	db *badger.DB
	// totals over every wrapped evaluator
	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens or creates a cache directory
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open evaluation cache: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory returns a cache that lives for the process only
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open evaluation cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// key drops the full-move number from the FEN. The halfmove clock stays:
// engines scale scores towards a draw as it approaches the fifty-move rule.
func key(pos *chess.Position, depth int) []byte {
	fields := strings.Fields(pos.String())
	if len(fields) > 5 {
		fields = fields[:5]
	}
	return []byte(fmt.Sprintf("eval/%d/%s", depth, strings.Join(fields, " ")))
}

// Get returns a cached evaluation
func (s *Store) Get(pos *chess.Position, depth int) (core.Evaluation, bool, error) {
	var eval core.Evaluation
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(pos, depth))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &eval)
		})
	})
	if err != nil {
		return core.Evaluation{}, false, err
	}
	return eval, found, nil
}

// Put stores an evaluation
func (s *Store) Put(pos *chess.Position, depth int, eval core.Evaluation) error {
	data, err := json.Marshal(eval)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(pos, depth), data)
	})
}

// CachedEvaluator serves evaluations from the store and falls back to next
type CachedEvaluator struct {
	store *Store
	next  Evaluator
}

// Wrap returns an evaluator that consults s before calling next
func (s *Store) Wrap(next Evaluator) *CachedEvaluator {
	return &CachedEvaluator{store: s, next: next}
}

func (c *CachedEvaluator) Evaluate(ctx context.Context, pos *chess.Position, depth int) (core.Evaluation, error) {
	if eval, ok, err := c.store.Get(pos, depth); err == nil && ok {
		c.store.hits.Add(1)
		return eval, nil
	}
	c.store.misses.Add(1)

	eval, err := c.next.Evaluate(ctx, pos, depth)
	if err != nil {
		return core.Evaluation{}, err
	}
	// a failed write only costs a future search
	_ = c.store.Put(pos, depth, eval)
	return eval, nil
}

// Stats returns hits and misses over all evaluators wrapped by s
func (s *Store) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
