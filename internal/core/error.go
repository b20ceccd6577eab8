package core

import "errors"

// Error codes
const (
	ErrCodeEvaluatorNotFound       = "EVALUATOR_NOT_FOUND"
	ErrCodeEvaluatorUnavailable    = "EVALUATOR_UNAVAILABLE"
	ErrCodeMalformedGame           = "MALFORMED_GAME"
	ErrCodeEvaluationIndeterminate = "EVALUATION_INDETERMINATE"
	ErrCodeRunNotFound             = "RUN_NOT_FOUND"
	ErrCodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidContent          = "INVALID_CONTENT_TYPE"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeStorageDisabled         = "STORAGE_DISABLED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

var (
	// ErrEvaluatorNotFound is returned when a configured engine path does not exist
	ErrEvaluatorNotFound = errors.New("evaluator not found")
	// ErrEvaluatorUnavailable is returned when the engine fails to start or dies mid-analysis
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
	// ErrMalformedGame is returned when game text cannot be decoded into a position and moves
	ErrMalformedGame = errors.New("malformed game")
	// ErrEvaluationIndeterminate is returned when the engine reports neither a score nor a mate
	ErrEvaluationIndeterminate = errors.New("evaluation indeterminate")
	// ErrRunNotFound is returned by storage lookups for unknown analysis runs
	ErrRunNotFound = errors.New("run not found")
)

// ErrorCode maps an error to its API code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrEvaluatorNotFound):
		return ErrCodeEvaluatorNotFound
	case errors.Is(err, ErrEvaluatorUnavailable):
		return ErrCodeEvaluatorUnavailable
	case errors.Is(err, ErrMalformedGame):
		return ErrCodeMalformedGame
	case errors.Is(err, ErrEvaluationIndeterminate):
		return ErrCodeEvaluationIndeterminate
	case errors.Is(err, ErrRunNotFound):
		return ErrCodeRunNotFound
	default:
		return ErrCodeInternalError
	}
}
