package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"queenwatch/internal/core"
	"queenwatch/internal/storage"
)

const (
	defaultRateLimit = 10 // req/min
	analysisTimeout  = 2 * time.Minute
)

// Analyzer runs a single-game analysis
type Analyzer interface {
	Analyze(ctx context.Context, req core.AnalyzeRequest) (*core.AnalyzeResponse, error)
}

// RunReader reads stored runs
type RunReader interface {
	GetRun(runID string) (*storage.RunRecord, error)
	GetBlunders(runID string) ([]core.BlunderRecord, error)
	IsHealthy() bool
}

type Config struct {
	// RateLimit is analysis requests per minute per client
	RateLimit int
	DevMode   bool
}

// HTTPHandler routes API requests to the analyzer and the run store
type HTTPHandler struct {
	analyzer Analyzer
	runs     RunReader
	log      *zap.SugaredLogger
}

func NewHTTPHandler(analyzer Analyzer, runs RunReader, log *zap.SugaredLogger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &HTTPHandler{analyzer: analyzer, runs: runs, log: log}
}

// NewFiberApp builds the API. runs may be nil when storage is disabled.
func NewFiberApp(analyzer Analyzer, runs RunReader, cfg Config, log *zap.SugaredLogger) *fiber.App {
	h := NewHTTPHandler(analyzer, runs, log)

	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          analysisTimeout + 5*time.Second,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             128 * 1024,
		DisableStartupMessage: true,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: zap.NewStdLog(h.log.Desugar()).Writer(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	// Content-Type validation for POST requests
	api.Use(contentTypeValidator)

	// Middleware validation for sanitization
	api.Use(validationMiddleware)

	// Every analysis starts an engine, so only that route is rate limited
	api.Post("/analyses", newRateLimiter(cfg), h.CreateAnalysis)
	api.Get("/runs/:runId", h.GetRun)
	api.Get("/runs/:runId/blunders", h.GetBlunders)

	return app
}

func newRateLimiter(cfg Config) fiber.Handler {
	maxReq := cfg.RateLimit
	if maxReq <= 0 {
		maxReq = defaultRateLimit
	}
	if cfg.DevMode {
		maxReq *= 2 // Loosen rate limiter for testing
	}

	return limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Check X-Forwarded-For first, then RemoteIP
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrCodeRateLimitExceeded,
				Details: fmt.Sprintf("%d analyses per minute allowed", maxReq),
			})
		},
	})
}

// contentTypeValidator ensures POST requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if contentType != "application/json" && contentType != "" {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrCodeInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrCodeInternalError,
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrCodeInvalidRequest
			response.Details = "unknown route"
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			response.Code = core.ErrCodeInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrCodeRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps analysis and storage errors to HTTP status codes
func statusFor(err error) int {
	switch core.ErrorCode(err) {
	case core.ErrCodeMalformedGame:
		return fiber.StatusUnprocessableEntity
	case core.ErrCodeRunNotFound:
		return fiber.StatusNotFound
	case core.ErrCodeEvaluatorNotFound, core.ErrCodeEvaluatorUnavailable:
		return fiber.StatusServiceUnavailable
	case core.ErrCodeEvaluationIndeterminate:
		return fiber.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(core.ErrorResponse{
		Error:   "analysis failed",
		Code:    core.ErrorCode(err),
		Details: err.Error(),
	})
}

// Health check endpoint
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	storageStatus := "disabled"
	if h.runs != nil {
		storageStatus = "ok"
		if !h.runs.IsHealthy() {
			storageStatus = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": storageStatus,
	})
}

// CreateAnalysis analyses one PGN game
func (h *HTTPHandler) CreateAnalysis(c *fiber.Ctx) error {
	// Ensure middleware validation ran
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrCodeInternalError,
		})
	}

	req, ok := c.Locals("validatedBody").(*core.AnalyzeRequest)
	if !ok || req == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation data missing",
			Code:  core.ErrCodeInternalError,
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), analysisTimeout)
	defer cancel()

	resp, err := h.analyzer.Analyze(ctx, *req)
	if err != nil {
		h.log.Warnw("analysis request failed", "error", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// runID validates the :runId parameter and storage availability
func (h *HTTPHandler) runID(c *fiber.Ctx) (string, error) {
	if h.runs == nil {
		return "", c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error: "storage disabled",
			Code:  core.ErrCodeStorageDisabled,
		})
	}

	runID := c.Params("runId")
	if !isValidUUID(runID) {
		return "", c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid run ID format",
			Code:    core.ErrCodeInvalidRequest,
			Details: "run ID must be a valid UUID",
		})
	}
	return runID, nil
}

// GetRun returns the summary of a stored run
func (h *HTTPHandler) GetRun(c *fiber.Ctx) error {
	runID, err := h.runID(c)
	if runID == "" {
		return err
	}

	run, err := h.runs.GetRun(runID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(core.RunResponse{
		RunID:         run.RunID,
		Player:        run.Player,
		Depth:         run.Depth,
		Threshold:     run.Threshold,
		GamesTotal:    run.GamesTotal,
		GamesAnalyzed: run.GamesAnalyzed,
		GamesFailed:   run.GamesFailed,
		Blunders:      run.Blunders,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
	})
}

// GetBlunders returns the blunder records of a stored run
func (h *HTTPHandler) GetBlunders(c *fiber.Ctx) error {
	runID, err := h.runID(c)
	if runID == "" {
		return err
	}

	blunders, err := h.runs.GetBlunders(runID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(core.BlundersResponse{
		RunID:    runID,
		Blunders: blunders,
	})
}
