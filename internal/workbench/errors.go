package workbench

import (
	"errors"
	"fmt"
)

// ErrEngineLoading is returned by Initialize while the engine module has not
// finished loading.
var ErrEngineLoading = errors.New("engine module is still loading")

// EngineLoadError reports that the engine module failed to load. It is
// terminal for the session.
type EngineLoadError struct {
	Err error
}

func (e *EngineLoadError) Error() string { return "loading engine module: " + e.Err.Error() }
func (e *EngineLoadError) Unwrap() error { return e.Err }

// ReferenceParseError reports reference text that is not valid JSON.
type ReferenceParseError struct {
	Err error
}

func (e *ReferenceParseError) Error() string { return e.Err.Error() }
func (e *ReferenceParseError) Unwrap() error { return e.Err }

// ProcessorInitError reports that the engine rejected well-formed reference
// data.
type ProcessorInitError struct {
	Err error
}

func (e *ProcessorInitError) Error() string { return e.Err.Error() }
func (e *ProcessorInitError) Unwrap() error { return e.Err }

// OperationNotReadyError is returned by Execute when no processor has been
// initialized.
type OperationNotReadyError struct {
	Category Category
}

func (e *OperationNotReadyError) Error() string {
	return fmt.Sprintf("cannot execute %q: processor is not initialized", e.Category)
}

// InputParseError reports operation input that is not valid JSON.
type InputParseError struct {
	Category Category
	Err      error
}

func (e *InputParseError) Error() string { return e.Err.Error() }
func (e *InputParseError) Unwrap() error { return e.Err }

// OperationExecutionError reports a failure raised by the engine while
// evaluating an operation.
type OperationExecutionError struct {
	Category Category
	Err      error
}

func (e *OperationExecutionError) Error() string { return e.Err.Error() }
func (e *OperationExecutionError) Unwrap() error { return e.Err }
