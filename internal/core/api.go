package core

import "time"

// Request types

type AnalyzeRequest struct {
	PGN       string `json:"pgn" validate:"required,max=65536"`
	Depth     int    `json:"depth,omitempty" validate:"omitempty,min=1,max=40"`
	Threshold int    `json:"threshold,omitempty" validate:"omitempty,min=1,max=10000"`
	Player    string `json:"player,omitempty" validate:"omitempty,max=64"`
}

// Response types

type AnalyzeResponse struct {
	RunID    string          `json:"runId"`
	Players  Players         `json:"players"`
	Result   string          `json:"result"`
	Blunders []BlunderRecord `json:"blunders"`
}

type RunResponse struct {
	RunID         string     `json:"runId"`
	Player        string     `json:"player,omitempty"`
	Depth         int        `json:"depth"`
	Threshold     int        `json:"threshold"`
	GamesTotal    int        `json:"gamesTotal"`
	GamesAnalyzed int        `json:"gamesAnalyzed"`
	GamesFailed   int        `json:"gamesFailed"`
	Blunders      int        `json:"blunders"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

type BlundersResponse struct {
	RunID    string          `json:"runId"`
	Blunders []BlunderRecord `json:"blunders"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
