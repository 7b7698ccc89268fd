package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/topdraw/topdraw/internal/cli"
	tderrors "github.com/topdraw/topdraw/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps err to the process status. Script failures were already
// reported with their line, so only other errors are printed here.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 130 // SIGINT
	case tderrors.Is(err, tderrors.ErrCodeEvaluation):
		return 2
	}
	fmt.Fprintln(os.Stderr, "Error:", tderrors.UserMessage(err))
	if tderrors.Is(err, tderrors.ErrCodeTimeout) {
		return 124
	}
	return 1
}
