package workbench

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/joeycumines/jrbench/internal/engine"
)

// Readiness is the engine load state. It leaves Loading exactly once.
type Readiness int

const (
	Loading Readiness = iota
	Ready
	Failed
)

func (r Readiness) String() string {
	switch r {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the mutable state of one interactive run.
//
// Readiness and the processor handle are written only by Lifecycle, the
// result only by Lifecycle and Dispatcher. The text buffers belong to the
// surface driving the session.
type Session struct {
	ID     string
	Status *StatusReporter

	mu        sync.RWMutex
	readiness Readiness
	loadErr   *EngineLoadError
	processor engine.Processor
	reference string
	inputs    [len(categoryNames)]string
	result    string
}

// NewSession returns a session in the Loading state with a fresh ID.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		ID:     id,
		Status: NewStatusReporter(logger.With(slog.String("session", id))),
	}
}

// Readiness returns the engine load state.
func (s *Session) Readiness() Readiness {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readiness
}

// HasProcessor reports whether a processor has been initialized.
func (s *Session) HasProcessor() bool {
	return s.currentProcessor() != nil
}

// Reference returns the reference text buffer.
func (s *Session) Reference() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reference
}

// SetReference replaces the reference text buffer.
func (s *Session) SetReference(text string) {
	s.mu.Lock()
	s.reference = text
	s.mu.Unlock()
}

// Input returns the pending input buffer for c.
func (s *Session) Input(c Category) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputs[c]
}

// SetInput replaces the pending input buffer for c.
func (s *Session) SetInput(c Category, text string) {
	s.mu.Lock()
	s.inputs[c] = text
	s.mu.Unlock()
}

// Result returns the last rendered result text.
func (s *Session) Result() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

func (s *Session) setResult(text string) {
	s.mu.Lock()
	s.result = text
	s.mu.Unlock()
}

// resolve moves the session out of Loading. It reports false if the
// readiness was already settled.
func (s *Session) resolve(r Readiness, loadErr *EngineLoadError) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readiness != Loading {
		return false
	}
	s.readiness, s.loadErr = r, loadErr
	return true
}

func (s *Session) gate() (Readiness, *EngineLoadError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readiness, s.loadErr
}

func (s *Session) currentProcessor() engine.Processor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processor
}

func (s *Session) replaceProcessor(p engine.Processor) {
	s.mu.Lock()
	s.processor = p
	s.mu.Unlock()
}
