package game

import (
	"strings"
)

// moveTokens returns the move tokens of a single PGN game: tag pairs,
// comments, variations, NAGs, move numbers and the result are dropped.
func moveTokens(text string) []string {
	var (
		b         strings.Builder
		lineStart = true
		comment   bool
		depth     int // variation nesting
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case comment:
			if c == '}' {
				comment = false
			}
			continue
		case c == '{':
			comment = true
			continue
		case c == '(':
			depth++
			continue
		case c == ')':
			if depth > 0 {
				depth--
			}
			continue
		case depth > 0:
			if c == '\n' {
				lineStart = true
			}
			continue
		case c == ';' || (lineStart && (c == '[' || c == '%')):
			// rest of line
			for i < len(text) && text[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
			lineStart = true
			continue
		}

		switch c {
		case '\n':
			lineStart = true
			b.WriteByte(' ')
		case ' ', '\t', '\r':
			b.WriteByte(' ')
		default:
			lineStart = false
			b.WriteByte(c)
		}
	}

	var tokens []string
	for _, field := range strings.Fields(b.String()) {
		field = stripMoveNumber(field)
		if field == "" || strings.HasPrefix(field, "$") || isResult(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// stripMoveNumber removes a leading "12." or "12..." from a token. Bare
// numbers and lone dots vanish.
func stripMoveNumber(tok string) string {
	rest := strings.TrimLeft(tok, "0123456789")
	if rest == "" {
		return ""
	}
	if rest[0] == '.' {
		return strings.TrimLeft(rest, ".")
	}
	return tok
}

func isResult(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	}
	return false
}
