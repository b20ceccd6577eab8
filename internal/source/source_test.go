package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const twoGames = `[Event "Rated bullet game"]
[White "a"]
[Black "b"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0

[Event "Casual"]
[White "b"]
[Black "a"]
[Result "*"]

1. d4 { a comment
[not a tag] } d5 *
`

func TestSplit(t *testing.T) {
	games, err := Split(strings.NewReader(twoGames))
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	if !strings.HasPrefix(games[0], `[Event "Rated bullet game"]`) || !strings.HasSuffix(games[0], "1-0") {
		t.Errorf("first game = %q", games[0])
	}
	if !strings.HasPrefix(games[1], `[Event "Casual"]`) || !strings.HasSuffix(games[1], "*") {
		t.Errorf("second game = %q", games[1])
	}
}

func TestSplitEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"blank lines", "\n\n  \n", 0},
		{"moves only", "1. e4 e5 *\n", 1},
		{"crlf", "[White \"a\"]\r\n\r\n1. e4 *\r\n[White \"b\"]\r\n\r\n1. d4 *\r\n", 2},
		{"tags only", "[White \"a\"]\n[Black \"b\"]\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			games, err := Split(strings.NewReader(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if len(games) != tt.want {
				t.Errorf("got %d games, want %d: %q", len(games), tt.want, games)
			}
		})
	}
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pgn")
	b := filepath.Join(dir, "b.pgn")
	if err := os.WriteFile(a, []byte(twoGames), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("1. c4 *\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	games, err := ReadFiles(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 3 {
		t.Fatalf("got %d games, want 3", len(games))
	}
	if games[2] != "1. c4 *" {
		t.Errorf("last game = %q", games[2])
	}

	if _, err := ReadFiles(filepath.Join(dir, "missing.pgn")); err == nil {
		t.Error("expected error for missing file")
	}
}
