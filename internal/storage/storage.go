package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"queenwatch/internal/core"
)

const (
	writeQueueSize  = 1000
	shutdownTimeout = 2 * time.Second
)

// writeOp is a queued transaction. done, when set, is closed once the op
// has been handled, even if it was skipped.
type writeOp struct {
	fn   func(*sql.Tx) error
	done chan struct{}
}

// Store handles SQLite database operations with async writes
type Store struct {
	db           *sql.DB
	path         string
	writeChan    chan writeOp
	healthStatus atomic.Bool
	log          *zap.SugaredLogger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewStore opens the database and starts the async writer
func NewStore(dataSourceName string, devMode bool, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL in development lets `db query` read while a server writes
	if devMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// a single connection keeps pragmas applied to every statement
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		db:        db,
		path:      dataSourceName,
		writeChan: make(chan writeOp, writeQueueSize),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.healthStatus.Store(true)

	s.wg.Add(1)
	go s.writerLoop()

	return s, nil
}

// writerLoop processes async write operations
func (s *Store) writerLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// drain what is already queued
			for {
				select {
				case op := <-s.writeChan:
					s.handle(op)
				default:
					return
				}
			}

		case op := <-s.writeChan:
			s.handle(op)
		}
	}
}

func (s *Store) handle(op writeOp) {
	if op.fn != nil && s.healthStatus.Load() {
		s.executeWrite(op.fn)
	}
	if op.done != nil {
		close(op.done)
	}
}

// executeWrite runs a transactional write operation
func (s *Store) executeWrite(fn func(*sql.Tx) error) {
	tx, err := s.db.Begin()
	if err != nil {
		s.log.Errorw("storage degraded: failed to begin transaction", "error", err)
		s.healthStatus.Store(false)
		return
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		s.log.Errorw("storage degraded: write operation failed", "error", err)
		s.healthStatus.Store(false)
		return
	}

	if err := tx.Commit(); err != nil {
		s.log.Errorw("storage degraded: failed to commit", "error", err)
		s.healthStatus.Store(false)
	}
}

// enqueue hands fn to the writer, dropping it when degraded or full
func (s *Store) enqueue(what string, fn func(*sql.Tx) error) {
	if !s.healthStatus.Load() {
		return
	}

	select {
	case s.writeChan <- writeOp{fn: fn}:
	default:
		s.log.Warnw("storage write queue full, dropping record", "record", what)
	}
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.New().String()
}

// RecordRun asynchronously records the start of an analysis run
func (s *Store) RecordRun(record RunRecord) {
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now().UTC()
	}

	s.enqueue("run", func(tx *sql.Tx) error {
		query := `INSERT INTO runs (
			run_id, player, depth, threshold, games_total, started_at
		) VALUES (?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.RunID, record.Player, record.Depth, record.Threshold,
			record.GamesTotal, record.StartedAt,
		)
		return err
	})
}

// RecordGame asynchronously records one game outcome with its blunders and
// updates the run counters in the same transaction
func (s *Store) RecordGame(record GameRecord, blunders []core.BlunderRecord) {
	s.enqueue("game", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO games (
			run_id, game_index, white, black, result, error
		) VALUES (?, ?, ?, ?, ?, ?)`,
			record.RunID, record.GameIndex, record.White, record.Black,
			record.Result, record.Error,
		)
		if err != nil {
			return err
		}

		for _, b := range blunders {
			_, err := tx.Exec(`INSERT INTO blunders (
				run_id, game_index, ply, move_number, player, color, move_san,
				fen_before, fen_after, eval_before, eval_after, eval_change
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				record.RunID, record.GameIndex, b.Ply, b.MoveNumber, b.Player,
				b.Color.String(), b.Move, b.PositionBefore, b.PositionAfter,
				b.EvalBefore, b.EvalAfter, b.EvalChange,
			)
			if err != nil {
				return err
			}
		}

		analyzed, failed := 1, 0
		if record.Error != "" {
			analyzed, failed = 0, 1
		}
		_, err = tx.Exec(`UPDATE runs SET
			games_analyzed = games_analyzed + ?,
			games_failed = games_failed + ?,
			blunders = blunders + ?
		WHERE run_id = ?`, analyzed, failed, len(blunders), record.RunID)
		return err
	})
}

// FinishRun asynchronously stamps the end of a run
func (s *Store) FinishRun(runID string, at time.Time) {
	s.enqueue("finish", func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE runs SET finished_at = ? WHERE run_id = ?`, at.UTC(), runID)
		return err
	})
}

// Flush blocks until every write queued before the call has been handled
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})

	select {
	case s.writeChan <- writeOp{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("storage closed")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("storage closed")
	}
}

// IsHealthy returns the current health status
func (s *Store) IsHealthy() bool {
	return s.healthStatus.Load()
}

// Close stops the writer after draining queued writes and closes the database
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			s.log.Warn("storage writer shutdown timeout, some writes may be lost")
		}

		err = s.db.Close()
	})
	return err
}

// InitDB creates the database schema
func (s *Store) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB closes the store and removes the database file
func (s *Store) DeleteDB() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	return nil
}

const runColumns = `run_id, player, depth, threshold, games_total, games_analyzed,
	games_failed, blunders, started_at, finished_at`

func scanRun(scan func(dest ...any) error) (RunRecord, error) {
	var (
		r        RunRecord
		finished sql.NullTime
	)
	err := scan(
		&r.RunID, &r.Player, &r.Depth, &r.Threshold, &r.GamesTotal, &r.GamesAnalyzed,
		&r.GamesFailed, &r.Blunders, &r.StartedAt, &finished,
	)
	if err != nil {
		return r, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// GetRun returns a single run or core.ErrRunNotFound
func (s *Store) GetRun(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &r, nil
}

// QueryRuns retrieves runs with optional filtering; "" or "*" match all.
// A player filter matches runs that analysed a game with that player.
func (s *Store) QueryRuns(runID, player string) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`

	var args []any

	if runID != "" && runID != "*" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}

	if player != "" && player != "*" {
		query += ` AND (player = ? OR run_id IN (
			SELECT run_id FROM games WHERE white = ? OR black = ?))`
		args = append(args, player, player, player)
	}

	query += " ORDER BY started_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return runs, nil
}

// GetBlunders returns the blunder records of a run ordered by game and ply
func (s *Store) GetBlunders(runID string) ([]core.BlunderRecord, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT
		ply, move_number, player, color, move_san, fen_before, fen_after,
		eval_before, eval_after, eval_change
	FROM blunders WHERE run_id = ? ORDER BY game_index, ply`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	blunders := []core.BlunderRecord{}
	for rows.Next() {
		var (
			b     core.BlunderRecord
			color string
		)
		err := rows.Scan(
			&b.Ply, &b.MoveNumber, &b.Player, &color, &b.Move,
			&b.PositionBefore, &b.PositionAfter,
			&b.EvalBefore, &b.EvalAfter, &b.EvalChange,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if err := b.Color.UnmarshalText([]byte(color)); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		blunders = append(blunders, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return blunders, nil
}

// Path returns the data source the store was opened with
func (s *Store) Path() string {
	return s.path
}
