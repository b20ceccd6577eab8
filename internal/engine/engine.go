package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess"

	"queenwatch/internal/core"
)

// DefaultEngine is the reserved name resolved through PATH at start time
const DefaultEngine = "stockfish"

const (
	handshakeTimeout = 5 * time.Second
	quitGracePeriod  = 1 * time.Second
)

// UCI is a single engine session over stdin/stdout.
// It is not meant to be shared between concurrent analyses.
type UCI struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	mu     sync.Mutex
	closed bool
	// stopped is set when a search was abandoned and its bestmove is still pending
	stopped bool
}

// Resolve checks an engine path. DefaultEngine is accepted as is, any other
// path must be an executable file.
func Resolve(path string) (string, error) {
	if path == "" || path == DefaultEngine {
		return DefaultEngine, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", core.ErrEvaluatorNotFound, path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", core.ErrEvaluatorNotFound, path)
	}
	if info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", core.ErrEvaluatorNotFound, path)
	}
	return path, nil
}

// Start launches the engine and completes the uci/isready handshake
func Start(ctx context.Context, path string, args ...string) (*UCI, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEvaluatorUnavailable, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEvaluatorUnavailable, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start engine: %v", core.ErrEvaluatorUnavailable, err)
	}

	u := &UCI{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 64),
	}
	go u.readLoop(stdout)

	if err := u.initialize(ctx); err != nil {
		u.Close()
		return nil, err
	}

	return u, nil
}

// readLoop pumps engine output into lines and closes it on EOF
func (u *UCI) readLoop(r io.Reader) {
	defer close(u.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		u.lines <- scanner.Text()
	}
}

func (u *UCI) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	if err := u.sendCommand("uci"); err != nil {
		return err
	}
	if _, err := u.waitFor(ctx, func(line string) bool { return line == "uciok" }); err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}

	return u.waitReady(ctx)
}

func (u *UCI) waitReady(ctx context.Context) error {
	if err := u.sendCommand("isready"); err != nil {
		return err
	}
	if _, err := u.waitFor(ctx, func(line string) bool { return line == "readyok" }); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// waitFor consumes output until match returns true. Every line read,
// including the matching one, is returned.
func (u *UCI) waitFor(ctx context.Context, match func(string) bool) ([]string, error) {
	var lines []string
	for {
		select {
		case line, ok := <-u.lines:
			if !ok {
				return lines, fmt.Errorf("%w: engine closed unexpectedly", core.ErrEvaluatorUnavailable)
			}
			lines = append(lines, line)
			if match(line) {
				return lines, nil
			}
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return lines, fmt.Errorf("%w: %v", core.ErrEvaluatorUnavailable, ctx.Err())
			}
			return lines, ctx.Err()
		}
	}
}

func (u *UCI) sendCommand(cmd string) error {
	if _, err := fmt.Fprintln(u.stdin, cmd); err != nil {
		return fmt.Errorf("%w: write %q: %v", core.ErrEvaluatorUnavailable, cmd, err)
	}
	return nil
}

// NewGame tells the engine that following positions belong to another game
func (u *UCI) NewGame(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.drainStopped(ctx); err != nil {
		return err
	}
	if err := u.sendCommand("ucinewgame"); err != nil {
		return err
	}
	return u.waitReady(ctx)
}

// Evaluate searches pos to the given depth and returns the score from
// White's point of view.
func (u *UCI) Evaluate(ctx context.Context, pos *chess.Position, depth int) (core.Evaluation, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return core.Evaluation{}, fmt.Errorf("%w: session closed", core.ErrEvaluatorUnavailable)
	}
	if err := u.drainStopped(ctx); err != nil {
		return core.Evaluation{}, err
	}

	if err := u.sendCommand("position fen " + pos.String()); err != nil {
		return core.Evaluation{}, err
	}
	if err := u.sendCommand(fmt.Sprintf("go depth %d", depth)); err != nil {
		return core.Evaluation{}, err
	}

	lines, err := u.waitFor(ctx, isBestMove)
	if err != nil {
		if ctx.Err() != nil {
			// leave the session usable: the pending bestmove is drained later
			if u.sendCommand("stop") == nil {
				u.stopped = true
			}
		}
		return core.Evaluation{}, err
	}

	score, err := parseSearch(lines)
	if err != nil {
		return core.Evaluation{}, fmt.Errorf("position %q: %w", pos.String(), err)
	}

	turn := core.ColorWhite
	if pos.Turn() == chess.Black {
		turn = core.ColorBlack
	}
	return score.forWhite(turn), nil
}

// drainStopped discards output of a search abandoned by a cancelled context
func (u *UCI) drainStopped(ctx context.Context) error {
	if !u.stopped {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	if _, err := u.waitFor(ctx, isBestMove); err != nil {
		return err
	}
	u.stopped = false
	return nil
}

func isBestMove(line string) bool {
	return strings.HasPrefix(line, "bestmove")
}

// Close asks the engine to quit and kills it if it does not exit in time
func (u *UCI) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.mu.Unlock()

	u.sendCommand("quit")
	u.stdin.Close()

	// unblock readLoop so the pipe can be released
	go func() {
		for range u.lines {
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- u.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(quitGracePeriod):
		// Force kill if it doesn't exit gracefully
		return u.cmd.Process.Kill()
	}
}
