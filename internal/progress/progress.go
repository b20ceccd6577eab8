// Package progress reports batch analysis progress, rewriting a single line
// on terminals and logging one entry per game elsewhere.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/term"
)

type Reporter struct {
	mu       sync.Mutex
	out      io.Writer
	log      *zap.SugaredLogger
	total    int
	done     int
	failed   int
	blunders int
	inline   bool
}

// New creates a reporter for total games writing to out. Inline output is
// used only when out is a terminal.
func New(out io.Writer, total int, log *zap.SugaredLogger) *Reporter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reporter{
		out:    out,
		log:    log,
		total:  total,
		inline: IsTerminal(out),
	}
}

// IsTerminal reports whether w is a file attached to a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Game records one finished game
func (r *Reporter) Game(index int, blunders int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	r.blunders += blunders
	if err != nil {
		r.failed++
	}

	if r.inline {
		fmt.Fprintf(r.out, "\ranalysed %d/%d games, %d failed, %d queen blunders", r.done, r.total, r.failed, r.blunders)
		return
	}

	if err != nil {
		r.log.Infow("game failed", "game", index+1, "done", r.done, "total", r.total, "error", err)
		return
	}
	r.log.Infow("game analysed", "game", index+1, "done", r.done, "total", r.total, "blunders", blunders)
}

// Finish terminates the inline line
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inline && r.done > 0 {
		fmt.Fprintln(r.out)
	}
}

// Counts returns games done, failed and blunders seen so far
func (r *Reporter) Counts() (done, failed, blunders int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done, r.failed, r.blunders
}
