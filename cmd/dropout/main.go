// Command dropout moves overdue enrollments to DROPOUT.
//
//	dropout run --driver postgres --dsn "$DATABASE_URL" --dry-run
//	dropout schedule --schedule "0 2 * * *" --metrics-addr :9090
//	dropout migrate --driver sqlite --dsn school.db
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/internal/cli"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitConfiguration = 2
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
			code = exitFailure
		}
	}()

	if err := cli.BuildCLI().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, dropout.ErrConfiguration) {
			return exitConfiguration
		}
		return exitFailure
	}
	return exitOK
}
