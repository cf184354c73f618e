package workbench

import (
	"context"
	"log/slog"
	"sync"
)

// Severity classifies a StatusMessage.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Severity) level() slog.Level {
	if s == SeverityError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// StatusMessage is the user-facing outcome of the most recent event.
type StatusMessage struct {
	Text     string
	Severity Severity
}

const initialStatus = "Loading engine module..."

// StatusReporter holds the single current StatusMessage. Every Set replaces
// it; there is no history.
type StatusReporter struct {
	logger *slog.Logger

	mu      sync.RWMutex
	current StatusMessage
}

// NewStatusReporter returns a reporter showing the initial loading message.
func NewStatusReporter(logger *slog.Logger) *StatusReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusReporter{
		logger:  logger,
		current: StatusMessage{Text: initialStatus, Severity: SeverityInfo},
	}
}

// Set overwrites the current message and logs it.
func (r *StatusReporter) Set(text string, severity Severity) {
	r.mu.Lock()
	r.current = StatusMessage{Text: text, Severity: severity}
	r.mu.Unlock()

	r.logger.Log(context.Background(), severity.level(), text, slog.String("severity", severity.String()))
}

// Current returns the current message.
func (r *StatusReporter) Current() StatusMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
