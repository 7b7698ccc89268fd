package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/topdraw/topdraw/pkg/compositor"
	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/pipeline"
)

// checkCommand creates the check command. It evaluates scripts without
// encoding or writing anything.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		seed    uint64
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check <script.tds>...",
		Short: "Evaluate scripts and report errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), args, seed, timeout)
		},
	}

	cmd.Flags().Uint64VarP(&seed, "seed", "s", 1, "random seed to evaluate with")
	cmd.Flags().DurationVar(&timeout, "timeout", pipeline.DefaultTimeout, "evaluation deadline per script")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, paths []string, seed uint64, timeout time.Duration) error {
	sw := startStopwatch(loggerFromContext(ctx))

	failed := 0
	for _, path := range paths {
		s := pipeline.ScriptFromPath(path)
		if err := checkScript(ctx, s, seed, timeout); err != nil {
			printScriptError(s.Path, err)
			failed++
			continue
		}
		printSuccess("%s", s.Path)
	}

	sw.done("Checked %d script(s)", len(paths))
	if failed > 0 {
		return errors.New(errors.ErrCodeEvaluation, "%d of %d script(s) failed", failed, len(paths))
	}
	return nil
}

// checkScript evaluates one script, interrupting it at the deadline.
func checkScript(ctx context.Context, s pipeline.Script, seed uint64, timeout time.Duration) error {
	src, err := s.Load()
	if err != nil {
		return err
	}
	comp := compositor.New(src, s.Name)
	defer comp.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { comp.Interrupt(ctx.Err().Error()) })
	defer stop()

	return comp.Evaluate(seed)
}
