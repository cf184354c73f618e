package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/jrbench/internal/config"
	"github.com/joeycumines/jrbench/internal/tui"
	"github.com/joeycumines/jrbench/internal/workbench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "tty"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestRunCommand_RequiresTerminal(t *testing.T) {
	cmd := NewRunCommand(config.NewConfig())
	cmd.isTerminal = func(int) bool { return false }
	cmd.runUI = func(context.Context, tui.Options, *os.File, *os.File) error {
		t.Fatal("ui must not start")
		return nil
	}

	err := cmd.Execute(context.Background(), nil, IO{Stdin: openFile(t), Stdout: openFile(t), Stderr: &bytes.Buffer{}})
	require.ErrorContains(t, err, "requires an interactive terminal")

	cmd.isTerminal = func(int) bool { return true }
	err = cmd.Execute(context.Background(), nil, IO{Stdin: bytes.NewReader(nil), Stdout: openFile(t), Stderr: &bytes.Buffer{}})
	require.ErrorContains(t, err, "requires an interactive terminal")
}

func TestRunCommand_StartsUI(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetGlobalOption(config.KeyUIResultHeight, "7")
	cfg.SetGlobalOption(config.KeyUIColor, "never")
	ref := writeFile(t, "ref.json", `{"a": 1}`)

	cmd := NewRunCommand(cfg)
	cmd.isTerminal = func(int) bool { return true }

	var got tui.Options
	cmd.runUI = func(ctx context.Context, opts tui.Options, in, out *os.File) error {
		got = opts
		return opts.Workbench.Load(ctx)
	}

	stdin, stdout := openFile(t), openFile(t)
	_, _, err := invoke(t, cmd, "", "-reference", ref)
	require.ErrorContains(t, err, "requires an interactive terminal", "string stdin is not a terminal")

	require.NoError(t, cmd.Execute(context.Background(), nil, IO{Stdin: stdin, Stdout: stdout, Stderr: &bytes.Buffer{}}))
	assert.Equal(t, `{"a": 1}`, got.Reference)
	assert.Equal(t, 7, got.ResultHeight)
	assert.Equal(t, "never", got.Color)
	require.NotNil(t, got.Logs)
	assert.Equal(t, workbench.Ready, got.Workbench.Session.Readiness())
}
