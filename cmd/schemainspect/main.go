package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
)

const (
	exitError      = 1
	exitConnection = 2
	exitRelation   = 3
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "schemainspect error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, source.ErrConnection):
		return exitConnection
	case errors.Is(err, source.ErrUnknownRelation), errors.Is(err, source.ErrNotTable):
		return exitRelation
	default:
		return exitError
	}
}
