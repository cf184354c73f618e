package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dop251/goja"
)

// installConsole routes the engine's console.* calls into the structured
// log. Writing to stdout would corrupt the interactive display.
func installConsole(vm *goja.Runtime, logger *slog.Logger) error {
	console := vm.NewObject()
	for name, level := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		if err := console.Set(name, consoleFunc(logger, level)); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

func consoleFunc(logger *slog.Logger, level slog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		logger.Log(context.Background(), level, strings.Join(parts, " "), slog.String("source", "engine"))
		return goja.Undefined()
	}
}
