// Package main implements queenwatch: it replays chess games through a UCI
// engine and reports the moves that gave away a queen.
package main

import (
	"fmt"
	"os"

	"queenwatch/cmd/queenwatch/cli"
)

const usage = `usage: queenwatch <command> [flags]

commands:
  analyze [flags] [files...]   analyse PGN files (stdin when none given)
  serve [flags]                run the HTTP API
  db init|delete|query|blunders -path <db> [flags]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:], os.Stdout)
	case "serve":
		err = runServe(os.Args[2:])
	case "db":
		err = cli.Run(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "queenwatch %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}
