package workbench

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joeycumines/jrbench/internal/engine"
	"github.com/joeycumines/jrbench/internal/jsonvalue"
)

const (
	statusEngineReady      = "Engine loaded, can initialize processor now"
	statusEngineFailed     = "Failed to load engine module: "
	statusInitialized      = "Processor initialized"
	statusInitializeFailed = "Failed to initialize processor: "
)

// Lifecycle gates the engine and owns the session's processor handle.
type Lifecycle struct {
	session *Session
	engine  engine.Engine
	logger  *slog.Logger

	// initMu serializes handle construction and replacement.
	initMu sync.Mutex
}

// NewLifecycle returns a Lifecycle managing session with eng.
func NewLifecycle(session *Session, eng engine.Engine, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{session: session, engine: eng, logger: logger}
}

// Load loads the engine and reports the outcome. There is no retry: a failed
// load disables the session for good.
func (l *Lifecycle) Load(ctx context.Context) error {
	if err := l.engine.Load(ctx); err != nil {
		l.OnEngineFailed(err)
		if _, loadErr := l.session.gate(); loadErr != nil {
			return loadErr
		}
		return &EngineLoadError{Err: err}
	}
	l.OnEngineReady()
	return nil
}

// OnEngineReady marks the engine as ready. Only the first report counts.
func (l *Lifecycle) OnEngineReady() {
	if !l.session.resolve(Ready, nil) {
		l.logger.Warn("ignoring repeated engine readiness report")
		return
	}
	l.session.Status.Set(statusEngineReady, SeveritySuccess)
}

// OnEngineFailed marks the engine as failed. Only the first report counts.
func (l *Lifecycle) OnEngineFailed(err error) {
	loadErr := &EngineLoadError{Err: err}
	if !l.session.resolve(Failed, loadErr) {
		l.logger.Warn("ignoring repeated engine readiness report", slog.Any("error", err))
		return
	}
	l.session.Status.Set(statusEngineFailed+err.Error(), SeverityError)
}

// Initialize builds a processor from referenceText and, on success, replaces
// the current one. Any failure leaves the current processor in place.
func (l *Lifecycle) Initialize(referenceText string) error {
	switch readiness, loadErr := l.session.gate(); readiness {
	case Loading:
		l.session.Status.Set(statusInitializeFailed+ErrEngineLoading.Error(), SeverityError)
		return ErrEngineLoading
	case Failed:
		return loadErr
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()

	reference, err := jsonvalue.Parse(referenceText)
	if err != nil {
		return l.initFailed(&ReferenceParseError{Err: err})
	}

	p, err := l.engine.NewProcessor(reference)
	if err != nil {
		return l.initFailed(&ProcessorInitError{Err: err})
	}

	reload := l.session.HasProcessor()
	l.session.replaceProcessor(p)
	l.session.setResult(statusInitialized)
	l.session.Status.Set(statusInitialized, SeveritySuccess)
	l.logger.Debug("processor initialized", slog.Bool("reload", reload))
	return nil
}

func (l *Lifecycle) initFailed(err error) error {
	l.session.Status.Set(statusInitializeFailed+err.Error(), SeverityError)
	return err
}
