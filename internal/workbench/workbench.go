// Package workbench is the session controller between a user surface and
// the transformation engine.
//
// A Workbench moves through a one-way readiness gate (Loading, then Ready or
// Failed) while the engine loads. Once Ready, Initialize builds a processor
// from reference data and Execute runs payload, response and entity
// operations against it. Every event overwrites the session's single status
// message; failures are returned as typed errors and never disturb the
// current processor or the last result.
package workbench

import (
	"context"
	"log/slog"

	"github.com/joeycumines/jrbench/internal/engine"
)

// Workbench wires a Session to its Lifecycle and Dispatcher.
type Workbench struct {
	Session    *Session
	Lifecycle  *Lifecycle
	Dispatcher *Dispatcher

	engine engine.Engine
}

// New returns a Workbench for eng. The engine is not loaded until Load.
func New(eng engine.Engine, logger *slog.Logger) *Workbench {
	if logger == nil {
		logger = slog.Default()
	}
	session := NewSession(logger)
	logger = logger.With(slog.String("session", session.ID))
	return &Workbench{
		Session:    session,
		Lifecycle:  NewLifecycle(session, eng, logger),
		Dispatcher: NewDispatcher(session, logger),
		engine:     eng,
	}
}

// Load loads the engine. It returns an *EngineLoadError on failure.
func (w *Workbench) Load(ctx context.Context) error {
	return w.Lifecycle.Load(ctx)
}

// Initialize stores referenceText in the session and (re)initializes the
// processor from it.
func (w *Workbench) Initialize(referenceText string) error {
	w.Session.SetReference(referenceText)
	return w.Lifecycle.Initialize(referenceText)
}

// Execute stores inputText as the pending input for c and runs it.
func (w *Workbench) Execute(c Category, inputText string) (string, error) {
	w.Session.SetInput(c, inputText)
	return w.Dispatcher.Execute(c, inputText)
}

// Status returns the current status message.
func (w *Workbench) Status() StatusMessage {
	return w.Session.Status.Current()
}

// Close releases the engine.
func (w *Workbench) Close() error {
	return w.engine.Close()
}
