package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/jrbench/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpCommand(t *testing.T) {
	registry := NewRegistry()
	help := NewHelpCommand(registry)
	registry.Register(help)
	registry.Register(NewVersionCommand("1.2.3"))
	registry.Register(NewExecCommand(config.NewConfig()))

	stdout, _, err := invoke(t, help, "")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage: jrbench <command> [options] [args...]")
	assert.Contains(t, stdout, "exec")
	assert.Contains(t, stdout, "Display version information")

	stdout, _, err = invoke(t, help, "", "exec")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Command: exec")
	assert.Contains(t, stdout, "Flags:")
	assert.Contains(t, stdout, "-assert")
	assert.Contains(t, stdout, "-reference")

	_, stderr, err := invoke(t, help, "", "nope")
	require.EqualError(t, err, "command not found: nope")
	assert.Equal(t, "Unknown command: nope\n", stderr)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := invoke(t, NewVersionCommand("1.2.3"), "")
	require.NoError(t, err)
	assert.Equal(t, "jrbench version 1.2.3\n", stdout)

	_, _, err = invoke(t, NewVersionCommand("1.2.3"), "", "extra")
	assert.Error(t, err)
}

func TestConfigCommand_GetSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	cfg := config.NewConfig()

	stdout, _, err := invoke(t, NewConfigCommand(cfg, path), "", config.KeyEngineLoadTimeout)
	require.NoError(t, err)
	assert.Equal(t, "engine.load-timeout: 30s\n", stdout)

	stdout, _, err = invoke(t, NewConfigCommand(cfg, path), "", config.KeyLogLevel, "debug")
	require.NoError(t, err)
	assert.Equal(t, "Set configuration: log.level = debug\n", stdout)
	assert.Equal(t, "debug", cfg.GetString(config.KeyLogLevel))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log.level debug\n", string(data))

	_, stderr, err := invoke(t, NewConfigCommand(cfg, path), "", config.KeyLogLevel, "loud")
	require.Error(t, err)
	assert.Contains(t, stderr, "Invalid value for log.level")

	stdout, _, err = invoke(t, NewConfigCommand(cfg, ""), "", "unknown.key")
	require.NoError(t, err)
	assert.Equal(t, "Configuration key 'unknown.key' not found\n", stdout)
}

func TestConfigCommand_ListValidateSchema(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetGlobalOption(config.KeyUIColor, "never")
	cfg.SetGlobalOption("stray", "1")
	cfg.SetCommandOption("exec", config.KeyExecCategory, "entity")

	stdout, _, err := invoke(t, NewConfigCommand(cfg, ""), "", "-all")
	require.NoError(t, err)
	assert.Equal(t, "Global configuration:\n  stray: 1\n  ui.color: never\n[exec]\n  category: entity\n", stdout)

	stdout, _, err = invoke(t, NewConfigCommand(cfg, ""), "", "validate")
	require.NoError(t, err)
	assert.Equal(t, "Configuration has 1 issue(s):\n  - unknown global option: \"stray\" (value: \"1\")\n", stdout)

	stdout, _, err = invoke(t, NewConfigCommand(cfg, ""), "", "schema")
	require.NoError(t, err)
	assert.Contains(t, stdout, config.KeyEngineCallTimeout)

	stdout, _, err = invoke(t, NewConfigCommand(cfg, ""), "")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration management:")
}
