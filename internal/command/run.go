package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joeycumines/jrbench/internal/config"
	"github.com/joeycumines/jrbench/internal/engine"
	"github.com/joeycumines/jrbench/internal/logging"
	"github.com/joeycumines/jrbench/internal/tui"
	"github.com/joeycumines/jrbench/internal/workbench"
	"golang.org/x/term"
)

// RunCommand starts the interactive workbench.
type RunCommand struct {
	*BaseCommand
	config *config.Config
	flags  sessionFlags

	isTerminal func(fd int) bool
	runUI      func(ctx context.Context, opts tui.Options, in, out *os.File) error
}

// NewRunCommand creates a new run command.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Start the interactive workbench",
			"run [options]",
		),
		config:     cfg,
		isTerminal: term.IsTerminal,
		runUI:      tui.Run,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	c.flags.register(fs)
}

// Execute runs the workbench until the user quits.
func (c *RunCommand) Execute(ctx context.Context, args []string, stdio IO) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stdio.Stderr, "unexpected arguments: %v\n", args)
		return errors.New("unexpected arguments")
	}

	in, inOK := stdio.Stdin.(*os.File)
	out, outOK := stdio.Stdout.(*os.File)
	if !inOK || !outOK || !c.isTerminal(int(in.Fd())) {
		return errors.New("run requires an interactive terminal; use 'jrbench exec' for batch runs")
	}

	r := newResolver(c.config, c.Name())

	logOpts, err := r.loggingOptions(c.flags)
	if err != nil {
		return err
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer logger.Close()

	engOpts, err := r.engineOptions(c.flags, logger.Logger)
	if err != nil {
		return err
	}
	reference, err := r.reference(c.flags)
	if err != nil {
		return err
	}

	wb := workbench.New(engine.New(engOpts), logger.Logger)
	defer wb.Close()
	logger.Info("starting workbench", "session", wb.Session.ID, "engine", engOpts.Path)

	resultHeight, err := r.integer(config.KeyUIResultHeight)
	if err != nil {
		return err
	}

	return c.runUI(ctx, tui.Options{
		Workbench:    wb,
		Logs:         logger.Buffer,
		Reference:    reference,
		ResultHeight: resultHeight,
		Color:        r.str("", config.KeyUIColor),
	}, in, out)
}
