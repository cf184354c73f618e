package workbench

import (
	"fmt"
	"log/slog"

	"github.com/joeycumines/jrbench/internal/engine"
	"github.com/joeycumines/jrbench/internal/jsonvalue"
)

const statusNotInitialized = "Processor is not initialized yet"

// Dispatcher runs operations against the session's current processor.
type Dispatcher struct {
	session *Session
	logger  *slog.Logger
}

// NewDispatcher returns a Dispatcher for session.
func NewDispatcher(session *Session, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{session: session, logger: logger}
}

// Execute parses inputText, evaluates it as category c and returns the
// serialized result, which also becomes the session result. On failure the
// previous result is kept.
//
// Execute panics if c is not a valid Category.
func (d *Dispatcher) Execute(c Category, inputText string) (string, error) {
	if !c.valid() {
		panic(fmt.Sprintf("workbench: invalid operation category %d", int(c)))
	}

	// snapshot; a concurrent reload must not switch processors mid-call
	p := d.session.currentProcessor()
	if p == nil {
		d.session.Status.Set(statusNotInitialized, SeverityError)
		return "", &OperationNotReadyError{Category: c}
	}

	input, err := jsonvalue.Parse(inputText)
	if err != nil {
		return "", d.fail(c, &InputParseError{Category: c, Err: err})
	}

	out, err := invoke(p, c, input)
	if err != nil {
		return "", d.fail(c, &OperationExecutionError{Category: c, Err: err})
	}

	text, err := Serialize(out)
	if err != nil {
		return "", d.fail(c, &OperationExecutionError{Category: c, Err: err})
	}

	d.session.setResult(text)
	d.session.Status.Set(fmt.Sprintf("Executed '%s'", c), SeveritySuccess)
	d.logger.Debug("operation executed", slog.String("category", c.String()), slog.Int("bytes", len(text)))
	return text, nil
}

func (d *Dispatcher) fail(c Category, err error) error {
	d.session.Status.Set(fmt.Sprintf("Failed to execute '%s': %s", c, err), SeverityError)
	return err
}

// invoke calls the processor method bound to c. A panicking processor is
// reported as an error.
func invoke(p engine.Processor, c Category, input any) (out any, err error) {
	var call func(any) (any, error)
	switch c {
	case Payload:
		call = p.Payload
	case Response:
		call = p.Response
	case Entity:
		call = p.Entity
	default:
		panic(fmt.Sprintf("workbench: invalid operation category %d", int(c)))
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return call(input)
}
