package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/jrbench/internal/goroutineid"
)

// ErrRuntimeClosed is returned for calls made after the engine was closed.
var ErrRuntimeClosed = errors.New("engine runtime is closed")

// runtime owns the goja VM and the event loop that serializes all access
// to it. goja.Runtime is not goroutine-safe: every use goes through run.
type runtime struct {
	loop    *eventloop.EventLoop
	timeout time.Duration

	// vm and loopID are written once, on the loop, before newRuntime returns.
	vm     *goja.Runtime
	loopID atomic.Int64

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newRuntime(registry *require.Registry, timeout time.Duration) (*runtime, error) {
	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(false),
	)
	loop.Start()

	rt := &runtime{
		loop:    loop,
		timeout: timeout,
		done:    make(chan struct{}),
	}

	ready := make(chan struct{})
	if !loop.RunOnLoop(func(vm *goja.Runtime) {
		rt.vm = vm
		rt.loopID.Store(goroutineid.Get())
		close(ready)
	}) {
		loop.Stop()
		return nil, errors.New("failed to start engine event loop")
	}
	<-ready

	return rt, nil
}

// run executes fn on the event loop and waits for it. Calls made from the
// loop goroutine itself run inline. A panic inside fn is returned as an
// error so that a misbehaving engine cannot take the session down.
func (rt *runtime) run(fn func(vm *goja.Runtime) error) error {
	rt.mu.Lock()
	closed := rt.closed
	rt.mu.Unlock()
	if closed {
		return ErrRuntimeClosed
	}

	if id := rt.loopID.Load(); id > 0 && id == goroutineid.Get() {
		return guard(rt.vm, fn)
	}

	errCh := make(chan error, 1)
	if !rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- guard(vm, fn)
	}) {
		return ErrRuntimeClosed
	}

	var timeout <-chan time.Time
	if rt.timeout > 0 {
		timer := time.NewTimer(rt.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-errCh:
		return err
	case <-rt.done:
		return ErrRuntimeClosed
	case <-timeout:
		return fmt.Errorf("engine call did not return within %v", rt.timeout)
	}
}

func guard(vm *goja.Runtime, fn func(vm *goja.Runtime) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r := r.(type) {
			case *goja.Exception:
				err = jsError(r)
			case *goja.InterruptedError:
				err = r
			default:
				err = fmt.Errorf("engine panic: %v", r)
			}
		}
	}()
	return jsError(fn(vm))
}

// close stops the event loop. It is safe to call more than once.
func (rt *runtime) close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	rt.mu.Unlock()

	close(rt.done)
	rt.loop.Stop()
}
