// Package source reads raw PGN game texts from files or standard input.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLine bounds a single PGN line; exports put a whole game on one line
const maxLine = 1 << 20

// Split cuts a multi-game PGN stream into one text per game. A game ends
// when a tag line follows movetext outside of a {comment}. Games are not
// validated here.
func Split(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		games     []string
		current   strings.Builder
		inMoves   bool
		inComment bool
	)

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			games = append(games, text)
		}
		current.Reset()
		inMoves = false
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		isTag := !inComment && strings.HasPrefix(trimmed, "[")
		if isTag && inMoves {
			flush()
		}
		if !isTag && trimmed != "" {
			inMoves = true
		}

		if !isTag {
			inComment = commentOpen(line, inComment)
		}

		current.WriteString(line)
		current.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pgn: %w", err)
	}
	flush()

	return games, nil
}

// commentOpen reports whether a brace comment is still open after line
func commentOpen(line string, open bool) bool {
	for _, r := range line {
		switch {
		case r == '{':
			open = true
		case r == '}':
			open = false
		case r == ';' && !open:
			// rest of line comment
			return false
		}
	}
	return open
}

// ReadFiles splits every file in order. With no paths it reads stdin.
func ReadFiles(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		return Split(os.Stdin)
	}

	var games []string
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		g, err := Split(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		games = append(games, g...)
	}
	return games, nil
}
