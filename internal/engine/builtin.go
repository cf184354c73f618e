package engine

import (
	"embed"
	"strings"

	"github.com/dop251/goja_nodejs/require"
)

//go:embed builtin/*.js
var builtinFS embed.FS

const (
	builtinRoot   = "/jrbench-builtin"
	builtinModule = builtinRoot + "/replacer.js"
)

// sourceLoader serves the embedded engine modules under builtinRoot and
// reads everything else from disk.
func sourceLoader(path string) ([]byte, error) {
	if name, ok := strings.CutPrefix(path, builtinRoot+"/"); ok {
		data, err := builtinFS.ReadFile("builtin/" + name)
		if err != nil {
			return nil, require.ModuleFileDoesNotExistError
		}
		return data, nil
	}
	return require.DefaultSourceLoader(path)
}
