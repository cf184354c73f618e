// Package engine hosts the JSON transformation engine: a CommonJS module
// running inside an embedded goja runtime.
//
// The module must export a Processor class (as module.exports itself, as
// exports.Processor, or as exports.default.Processor). An instance is
// constructed from the reference data and exposes three methods, one per
// operation category:
//
//	class Processor {
//	  constructor(reference) {}
//	  payload(input) {}
//	  response(input) {}
//	  entity(input) {}
//	}
//
// Results may contain Map instances; they are exported as *jsonvalue.Map so
// their entries are not lost.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// Engine is the contract the workbench consumes.
type Engine interface {
	// Load prepares the engine. It is called once and may block.
	Load(ctx context.Context) error
	// NewProcessor builds an engine instance from parsed reference data.
	NewProcessor(reference any) (Processor, error)
	// Close releases the engine.
	Close() error
}

// Processor is an initialized engine instance. Each method evaluates one
// operation category against parsed input and returns structured output.
type Processor interface {
	Payload(input any) (any, error)
	Response(input any) (any, error)
	Entity(input any) (any, error)
}

// Options configure a JSEngine.
type Options struct {
	// Path is the engine module file. Empty selects the built-in engine.
	Path string
	// LoadTimeout bounds Load. Zero means no limit.
	LoadTimeout time.Duration
	// CallTimeout bounds how long a caller waits for a single engine call.
	// The call itself is not interrupted. Zero means no limit.
	CallTimeout time.Duration
	// Logger receives engine console output. Defaults to slog.Default().
	Logger *slog.Logger
}

var (
	errAlreadyLoaded = errors.New("engine already loaded")
	errNotLoaded     = errors.New("engine is not loaded")
)

// JSEngine runs an engine module in goja.
type JSEngine struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	rt      *runtime
	ctor    *goja.Object
}

var _ Engine = (*JSEngine)(nil)

// New returns an unloaded JSEngine.
func New(opts Options) *JSEngine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JSEngine{opts: opts, logger: logger}
}

// ModuleName returns the module that Load evaluates.
func (e *JSEngine) ModuleName() string {
	if e.opts.Path == "" {
		return builtinModule
	}
	return e.opts.Path
}

// Load starts the runtime and evaluates the engine module. It may only be
// called once, whatever its outcome.
func (e *JSEngine) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errAlreadyLoaded
	}
	e.started = true
	e.mu.Unlock()

	if e.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.LoadTimeout)
		defer cancel()
	}

	type loaded struct {
		rt   *runtime
		ctor *goja.Object
		err  error
	}
	done := make(chan loaded, 1)
	go func() {
		rt, ctor, err := e.load()
		done <- loaded{rt, ctor, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		e.mu.Lock()
		e.rt, e.ctor = res.rt, res.ctor
		e.mu.Unlock()
		e.logger.Debug("engine loaded", slog.String("module", e.ModuleName()))
		return nil

	case <-ctx.Done():
		go func() {
			if res := <-done; res.rt != nil {
				res.rt.close()
			}
		}()
		return fmt.Errorf("loading %s: %w", e.ModuleName(), ctx.Err())
	}
}

func (e *JSEngine) load() (*runtime, *goja.Object, error) {
	entry := builtinModule
	if e.opts.Path != "" {
		abs, err := filepath.Abs(e.opts.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving engine path: %w", err)
		}
		entry = abs
	}

	registry := require.NewRegistry(require.WithLoader(sourceLoader))
	rt, err := newRuntime(registry, e.opts.CallTimeout)
	if err != nil {
		return nil, nil, err
	}

	var ctor *goja.Object
	err = rt.run(func(vm *goja.Runtime) error {
		if err := installConsole(vm, e.logger); err != nil {
			return err
		}
		req, ok := goja.AssertFunction(vm.Get("require"))
		if !ok {
			return errors.New("require is not available")
		}
		exports, err := req(goja.Undefined(), vm.ToValue(entry))
		if err != nil {
			return fmt.Errorf("evaluating %s: %w", e.ModuleName(), err)
		}
		ctor = processorClass(vm, exports)
		if ctor == nil {
			return fmt.Errorf("%s does not export a Processor class", e.ModuleName())
		}
		return nil
	})
	if err != nil {
		rt.close()
		return nil, nil, err
	}
	return rt, ctor, nil
}

func processorClass(vm *goja.Runtime, exports goja.Value) *goja.Object {
	if exports == nil || goja.IsUndefined(exports) || goja.IsNull(exports) {
		return nil
	}
	obj := exports.ToObject(vm)
	if _, ok := goja.AssertConstructor(obj); ok {
		return obj
	}
	for _, candidate := range []goja.Value{
		obj.Get("Processor"),
		func() goja.Value {
			if def, ok := obj.Get("default").(*goja.Object); ok {
				return def.Get("Processor")
			}
			return nil
		}(),
	} {
		if c, ok := candidate.(*goja.Object); ok {
			if _, ok := goja.AssertConstructor(c); ok {
				return c
			}
		}
	}
	return nil
}

// NewProcessor constructs a Processor from reference data.
func (e *JSEngine) NewProcessor(reference any) (Processor, error) {
	rt, ctor, err := e.loaded()
	if err != nil {
		return nil, err
	}

	var instance *goja.Object
	err = rt.run(func(vm *goja.Runtime) error {
		ref, err := toJS(vm, reference)
		if err != nil {
			return err
		}
		instance, err = vm.New(ctor, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &jsProcessor{rt: rt, obj: instance}, nil
}

// Close stops the runtime.
func (e *JSEngine) Close() error {
	e.mu.Lock()
	rt := e.rt
	e.rt, e.ctor = nil, nil
	e.mu.Unlock()
	if rt != nil {
		rt.close()
	}
	return nil
}

func (e *JSEngine) loaded() (*runtime, *goja.Object, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rt == nil {
		return nil, nil, errNotLoaded
	}
	return e.rt, e.ctor, nil
}

// jsProcessor is an instance of the module's Processor class.
type jsProcessor struct {
	rt  *runtime
	obj *goja.Object
}

const (
	methodPayload  = "payload"
	methodResponse = "response"
	methodEntity   = "entity"
)

func (p *jsProcessor) Payload(input any) (any, error)  { return p.call(methodPayload, input) }
func (p *jsProcessor) Response(input any) (any, error) { return p.call(methodResponse, input) }
func (p *jsProcessor) Entity(input any) (any, error)   { return p.call(methodEntity, input) }

func (p *jsProcessor) call(method string, input any) (any, error) {
	var out any
	err := p.rt.run(func(vm *goja.Runtime) error {
		fn, ok := goja.AssertFunction(p.obj.Get(method))
		if !ok {
			return fmt.Errorf("processor has no %s method", method)
		}
		arg, err := toJS(vm, input)
		if err != nil {
			return err
		}
		res, err := fn(p.obj, arg)
		if err != nil {
			return err
		}
		x, err := newExporter(vm)
		if err != nil {
			return err
		}
		v, ok, err := x.export(res)
		if err != nil {
			return err
		}
		if ok {
			out = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// jsError replaces a thrown JavaScript value with an error carrying just
// its message, so that callers see "boom" rather than "Error: boom at ...".
// It must run on the event loop.
func jsError(err error) error {
	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return err
	}
	msg := ex.Error()
	if v := ex.Value(); v != nil {
		msg = v.String()
		if obj, ok := v.(*goja.Object); ok {
			if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
				msg = m.String()
			}
		}
	}
	if ex == err {
		return errors.New(msg)
	}
	// keep any wrapping context, replacing only the exception text
	return errors.New(strings.Replace(err.Error(), ex.Error(), msg, 1))
}
