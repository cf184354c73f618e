package command

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/expr-lang/expr"
	"github.com/joeycumines/jrbench/internal/config"
	"github.com/joeycumines/jrbench/internal/engine"
	"github.com/joeycumines/jrbench/internal/logging"
	"github.com/joeycumines/jrbench/internal/workbench"
)

// ExecCommand runs a single operation without the interactive surface:
// load the engine, initialize from the reference file, execute one input and
// print the result.
type ExecCommand struct {
	*BaseCommand
	config *config.Config
	flags  sessionFlags

	category  string
	inputPath string
	assertion string
}

// NewExecCommand creates a new exec command.
func NewExecCommand(cfg *config.Config) *ExecCommand {
	return &ExecCommand{
		BaseCommand: NewBaseCommand(
			"exec",
			"Run one operation non-interactively and print the result",
			"exec [options] -reference FILE [-category payload|response|entity] [-input FILE|-]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the exec command.
func (c *ExecCommand) SetupFlags(fs *flag.FlagSet) {
	c.flags.register(fs)
	fs.StringVar(&c.category, "category", "", "Operation category: payload, response or entity (default from config, else payload)")
	fs.StringVar(&c.inputPath, "input", "-", "Input file, or - for stdin")
	fs.StringVar(&c.assertion, "assert", "", "Expression over result and category that must evaluate to true")
}

// assertEnv is the environment of an -assert expression.
type assertEnv struct {
	Result   any    `expr:"result"`
	Category string `expr:"category"`
}

// statusError reports a failed step with the session status text.
type statusError struct {
	status string
	err    error
}

func (e *statusError) Error() string { return e.status }
func (e *statusError) Unwrap() error { return e.err }

// Execute runs the operation.
func (c *ExecCommand) Execute(ctx context.Context, args []string, stdio IO) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stdio.Stderr, "unexpected arguments: %v\n", args)
		return errors.New("unexpected arguments")
	}

	r := newResolver(c.config, c.Name())

	category, err := workbench.ParseCategory(r.str(c.category, config.KeyExecCategory))
	if err != nil {
		return err
	}

	reference, err := r.reference(c.flags)
	if err != nil {
		return err
	}
	if reference == "" {
		return errors.New("a reference file is required (-reference or reference.file)")
	}

	input, err := c.readInput(stdio.Stdin)
	if err != nil {
		return err
	}

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

	wb := workbench.New(engine.New(engOpts), logger.Logger)
	defer wb.Close()

	if err := wb.Load(ctx); err != nil {
		return &statusError{wb.Status().Text, err}
	}
	if err := wb.Initialize(reference); err != nil {
		return &statusError{wb.Status().Text, err}
	}
	text, err := wb.Execute(category, input)
	if err != nil {
		return &statusError{wb.Status().Text, err}
	}

	_, _ = fmt.Fprintln(stdio.Stdout, text)

	if c.assertion != "" {
		return checkAssertion(c.assertion, category, text)
	}
	return nil
}

func (c *ExecCommand) readInput(stdin io.Reader) (string, error) {
	if c.inputPath == "" || c.inputPath == "-" {
		if stdin == nil {
			return "", errors.New("no input: stdin is not available")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(c.inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

// checkAssertion evaluates expression against the serialized result.
func checkAssertion(expression string, category workbench.Category, text string) error {
	program, err := expr.Compile(expression, expr.Env(assertEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("invalid assertion: %w", err)
	}

	env := assertEnv{Category: category.String()}
	if err := json.Unmarshal([]byte(text), &env.Result); err != nil {
		return fmt.Errorf("decoding result for assertion: %w", err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("evaluating assertion: %w", err)
	}
	if ok, _ := out.(bool); !ok {
		return fmt.Errorf("assertion failed: %s", expression)
	}
	return nil
}
