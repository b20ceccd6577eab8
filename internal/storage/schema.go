package storage

import "time"

// RunRecord represents a row in the runs table
type RunRecord struct {
	RunID         string     `db:"run_id"`
	Player        string     `db:"player"`
	Depth         int        `db:"depth"`
	Threshold     int        `db:"threshold"`
	GamesTotal    int        `db:"games_total"`
	GamesAnalyzed int        `db:"games_analyzed"`
	GamesFailed   int        `db:"games_failed"`
	Blunders      int        `db:"blunders"`
	StartedAt     time.Time  `db:"started_at"`
	FinishedAt    *time.Time `db:"finished_at"`
}

// GameRecord represents a row in the games table
type GameRecord struct {
	RunID     string `db:"run_id"`
	GameIndex int    `db:"game_index"`
	White     string `db:"white"`
	Black     string `db:"black"`
	Result    string `db:"result"`
	Error     string `db:"error"` // empty when the game was analysed
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	player TEXT NOT NULL DEFAULT '',
	depth INTEGER NOT NULL,
	threshold INTEGER NOT NULL,
	games_total INTEGER NOT NULL DEFAULT 0,
	games_analyzed INTEGER NOT NULL DEFAULT 0,
	games_failed INTEGER NOT NULL DEFAULT 0,
	blunders INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS games (
	run_id TEXT NOT NULL,
	game_index INTEGER NOT NULL,
	white TEXT NOT NULL DEFAULT '',
	black TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, game_index),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS blunders (
	blunder_id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	game_index INTEGER NOT NULL,
	ply INTEGER NOT NULL,
	move_number INTEGER NOT NULL,
	player TEXT NOT NULL,
	color TEXT NOT NULL CHECK(color IN ('w', 'b')),
	move_san TEXT NOT NULL,
	fen_before TEXT NOT NULL,
	fen_after TEXT NOT NULL,
	eval_before INTEGER NOT NULL,
	eval_after INTEGER NOT NULL,
	eval_change INTEGER NOT NULL,
	FOREIGN KEY (run_id, game_index) REFERENCES games(run_id, game_index) ON DELETE CASCADE,
	UNIQUE(run_id, game_index, ply)
);

CREATE INDEX IF NOT EXISTS idx_blunders_run_id ON blunders(run_id);
CREATE INDEX IF NOT EXISTS idx_games_white ON games(white);
CREATE INDEX IF NOT EXISTS idx_games_black ON games(black);
CREATE INDEX IF NOT EXISTS idx_runs_player ON runs(player);
`
