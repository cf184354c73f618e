package workbench

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/joeycumines/jrbench/internal/engine"
	"github.com/joeycumines/jrbench/internal/jsonvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor adapts a function to engine.Processor. It is a pointer so
// that handles can be compared by identity.
type fakeProcessor struct {
	call func(category string, input any) (any, error)
}

func (p *fakeProcessor) Payload(input any) (any, error)  { return p.call("payload", input) }
func (p *fakeProcessor) Response(input any) (any, error) { return p.call("response", input) }
func (p *fakeProcessor) Entity(input any) (any, error)   { return p.call("entity", input) }

type fakeEngine struct {
	loadErr error
	build   func(reference any) (engine.Processor, error)

	mu     sync.Mutex
	loads  int
	builds int
	closed bool
}

func (f *fakeEngine) Load(context.Context) error {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	return f.loadErr
}

func (f *fakeEngine) NewProcessor(reference any) (engine.Processor, error) {
	f.mu.Lock()
	f.builds++
	f.mu.Unlock()
	if f.build != nil {
		return f.build(reference)
	}
	return echoProcessor(reference), nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// echoProcessor returns a Map describing the call.
func echoProcessor(reference any) engine.Processor {
	return &fakeProcessor{func(category string, input any) (any, error) {
		return jsonvalue.NewMap(
			jsonvalue.Entry{Key: "category", Value: category},
			jsonvalue.Entry{Key: "reference", Value: reference},
			jsonvalue.Entry{Key: "input", Value: input},
		), nil
	}}
}

func newReady(t *testing.T, eng *fakeEngine) *Workbench {
	t.Helper()
	w := New(eng, nil)
	require.NoError(t, w.Load(context.Background()))
	return w
}

func TestNew_InitialState(t *testing.T) {
	w := New(&fakeEngine{}, nil)

	assert.Equal(t, StatusMessage{Text: "Loading engine module...", Severity: SeverityInfo}, w.Status())
	assert.Equal(t, Loading, w.Session.Readiness())
	assert.False(t, w.Session.HasProcessor())
	assert.Empty(t, w.Session.Result())

	_, err := uuid.Parse(w.Session.ID)
	assert.NoError(t, err)
}

func TestLoad_Ready(t *testing.T) {
	eng := &fakeEngine{}
	w := newReady(t, eng)

	assert.Equal(t, Ready, w.Session.Readiness())
	assert.Equal(t, StatusMessage{Text: "Engine loaded, can initialize processor now", Severity: SeveritySuccess}, w.Status())
	assert.Equal(t, 1, eng.loads)
}

func TestInitialize_Succeeds(t *testing.T) {
	w := newReady(t, &fakeEngine{})

	require.NoError(t, w.Initialize(`{"a":1}`))
	assert.Equal(t, StatusMessage{Text: "Processor initialized", Severity: SeveritySuccess}, w.Status())
	assert.Equal(t, "Processor initialized", w.Session.Result())
	assert.True(t, w.Session.HasProcessor())
	assert.Equal(t, `{"a":1}`, w.Session.Reference())
}

func TestInitialize_ReferenceParseError(t *testing.T) {
	eng := &fakeEngine{}
	w := newReady(t, eng)

	err := w.Initialize(`not valid json`)
	var parseErr *ReferenceParseError
	require.ErrorAs(t, err, &parseErr)

	status := w.Status()
	assert.Equal(t, SeverityError, status.Severity)
	assert.Equal(t, "Failed to initialize processor: "+parseErr.Error(), status.Text)
	assert.Contains(t, status.Text, "invalid character")
	assert.False(t, w.Session.HasProcessor())
	assert.Zero(t, eng.builds, "the engine is not consulted")
}

func TestExecute_MapResultIsSerialized(t *testing.T) {
	w := newReady(t, &fakeEngine{build: func(any) (engine.Processor, error) {
		return &fakeProcessor{func(string, any) (any, error) {
			return jsonvalue.NewMap(jsonvalue.Entry{Key: "y", Value: int64(2)}), nil
		}}, nil
	}})
	require.NoError(t, w.Initialize(`{}`))

	text, err := w.Execute(Payload, `{"x":1}`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"y\": 2\n}", text)
	assert.Equal(t, text, w.Session.Result())
	assert.Equal(t, StatusMessage{Text: "Executed 'payload'", Severity: SeveritySuccess}, w.Status())
}

func TestExecute_NotInitialized(t *testing.T) {
	w := newReady(t, &fakeEngine{})

	_, err := w.Execute(Entity, `{"z":1}`)
	var notReady *OperationNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, Entity, notReady.Category)

	assert.Equal(t, StatusMessage{Text: "Processor is not initialized yet", Severity: SeverityError}, w.Status())
	assert.Empty(t, w.Session.Result())
}

func TestLoad_Fails(t *testing.T) {
	eng := &fakeEngine{loadErr: errors.New("no such module")}
	w := New(eng, nil)

	err := w.Load(context.Background())
	var loadErr *EngineLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, eng.loadErr)

	failed := StatusMessage{Text: "Failed to load engine module: no such module", Severity: SeverityError}
	assert.Equal(t, Failed, w.Session.Readiness())
	assert.Equal(t, failed, w.Status())

	// initialize stays unavailable without re-surfacing the status
	w.Session.Status.Set("something else", SeverityInfo)
	assert.Same(t, loadErr, w.Initialize(`{"a":1}`))
	assert.Equal(t, "something else", w.Status().Text)
	assert.Zero(t, eng.builds)

	for _, c := range Categories() {
		_, err := w.Execute(c, `{}`)
		assert.IsType(t, &OperationNotReadyError{}, err, c.String())
	}
}

func TestInitialize_WhileLoading(t *testing.T) {
	eng := &fakeEngine{}
	w := New(eng, nil)

	require.ErrorIs(t, w.Initialize(`{}`), ErrEngineLoading)
	assert.Equal(t, StatusMessage{Text: "Failed to initialize processor: engine module is still loading", Severity: SeverityError}, w.Status())
	assert.Zero(t, eng.builds)
}

func TestReadiness_ReportedOnce(t *testing.T) {
	w := newReady(t, &fakeEngine{})

	w.Lifecycle.OnEngineFailed(errors.New("late"))
	assert.Equal(t, Ready, w.Session.Readiness())
	assert.Equal(t, SeveritySuccess, w.Status().Severity)

	f := New(&fakeEngine{}, nil)
	f.Lifecycle.OnEngineFailed(errors.New("first"))
	f.Lifecycle.OnEngineReady()
	assert.Equal(t, Failed, f.Session.Readiness())
	assert.Equal(t, "Failed to load engine module: first", f.Status().Text)
}

func TestInitialize_EngineRejectsReference(t *testing.T) {
	eng := &fakeEngine{}
	w := newReady(t, eng)
	require.NoError(t, w.Initialize(`{"v":1}`))
	before := w.Session.currentProcessor()

	eng.build = func(any) (engine.Processor, error) { return nil, errors.New("attribute list is empty") }
	err := w.Initialize(`{"v":2}`)

	var initErr *ProcessorInitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, StatusMessage{Text: "Failed to initialize processor: attribute list is empty", Severity: SeverityError}, w.Status())
	assert.Same(t, before, w.Session.currentProcessor())
}

func TestExecute_RequiresProcessor(t *testing.T) {
	w := newReady(t, &fakeEngine{})
	w.Session.setResult("previous")

	for _, c := range Categories() {
		t.Run(c.String(), func(t *testing.T) {
			_, err := w.Execute(c, `not even json`)
			assert.IsType(t, &OperationNotReadyError{}, err)
			assert.Equal(t, "previous", w.Session.Result())
			assert.False(t, w.Session.HasProcessor())
		})
	}
}

func TestFailures_KeepProcessorAndResult(t *testing.T) {
	eng := &fakeEngine{build: func(any) (engine.Processor, error) {
		return &fakeProcessor{func(category string, input any) (any, error) {
			if category == "response" {
				return nil, errors.New("unknown attribute id 7")
			}
			return category, nil
		}}, nil
	}}
	w := newReady(t, eng)
	require.NoError(t, w.Initialize(`[]`))
	handle := w.Session.currentProcessor()

	text, err := w.Execute(Payload, `{"ok":true}`)
	require.NoError(t, err)
	assert.Equal(t, `"payload"`, text)
	w.Session.SetInput(Entity, `{"pending":1}`)

	_, err = w.Execute(Response, `{broken`)
	var parseErr *InputParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, Response, parseErr.Category)
	assert.Equal(t, "Failed to execute 'response': "+parseErr.Error(), w.Status().Text)

	_, err = w.Execute(Response, `{"7":"x"}`)
	var execErr *OperationExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, Response, execErr.Category)
	assert.Equal(t, StatusMessage{Text: "Failed to execute 'response': unknown attribute id 7", Severity: SeverityError}, w.Status())

	assert.Same(t, handle, w.Session.currentProcessor())
	assert.Equal(t, `"payload"`, w.Session.Result())
	assert.Equal(t, `{"ok":true}`, w.Session.Input(Payload))
	assert.Equal(t, `{"pending":1}`, w.Session.Input(Entity))
	assert.Equal(t, `{"7":"x"}`, w.Session.Input(Response))
}

func TestInitialize_ReplacesProcessor(t *testing.T) {
	w := newReady(t, &fakeEngine{})

	require.NoError(t, w.Initialize(`{"version":1}`))
	first, err := w.Execute(Payload, `{}`)
	require.NoError(t, err)
	assert.Contains(t, first, `"version": 1`)

	require.NoError(t, w.Initialize(`{"version":2}`))
	for _, c := range Categories() {
		text, err := w.Execute(c, `{}`)
		require.NoError(t, err)
		assert.Contains(t, text, `"version": 2`)
		assert.NotContains(t, text, `"version": 1`)
	}
}

func TestConcurrentReloadAndExecute(t *testing.T) {
	w := newReady(t, &fakeEngine{})
	require.NoError(t, w.Initialize(`{"gen":0}`))

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Initialize(fmt.Sprintf(`{"gen":%d}`, i)))
		}()
		go func() {
			defer wg.Done()
			_, err := w.Dispatcher.Execute(Entity, `[1,2]`)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	text, err := w.Execute(Payload, `null`)
	require.NoError(t, err)
	assert.Contains(t, text, `"category": "payload"`)
}

func TestExecute_ProcessorPanics(t *testing.T) {
	w := newReady(t, &fakeEngine{build: func(any) (engine.Processor, error) {
		return &fakeProcessor{func(string, any) (any, error) { panic("index out of range") }}, nil
	}})
	require.NoError(t, w.Initialize(`{}`))

	_, err := w.Execute(Entity, `[]`)
	var execErr *OperationExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.EqualError(t, err, "processor panic: index out of range")
	assert.True(t, w.Session.HasProcessor())
}

func TestExecute_InvalidCategoryPanics(t *testing.T) {
	w := newReady(t, &fakeEngine{})
	require.NoError(t, w.Initialize(`{}`))
	assert.PanicsWithValue(t, "workbench: invalid operation category 3", func() {
		_, _ = w.Dispatcher.Execute(Category(3), `{}`)
	})
}

func TestClose(t *testing.T) {
	eng := &fakeEngine{}
	w := New(eng, nil)
	require.NoError(t, w.Close())
	assert.True(t, eng.closed)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, []Category{Payload, Response, Entity}, Categories())
	assert.Equal(t, "response", Response.String())
	assert.Equal(t, "Category(9)", Category(9).String())

	c, err := ParseCategory("Entity")
	require.NoError(t, err)
	assert.Equal(t, Entity, c)

	_, err = ParseCategory("request")
	assert.EqualError(t, err, `unknown category "request" (expected payload, response or entity)`)
}

func TestStatusReporter_Logs(t *testing.T) {
	var buf bytes.Buffer
	r := NewStatusReporter(slog.New(slog.NewJSONHandler(&buf, nil)))

	r.Set("Executed 'entity'", SeveritySuccess)
	r.Set("Processor is not initialized yet", SeverityError)
	assert.Equal(t, StatusMessage{Text: "Processor is not initialized yet", Severity: SeverityError}, r.Current())

	var entries []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var e map[string]any
		require.NoError(t, dec.Decode(&e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "success", entries[0]["severity"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Equal(t, "Processor is not initialized yet", entries[1]["msg"])
}

func TestBuiltinEngine_MapResults(t *testing.T) {
	eng := engine.New(engine.Options{})
	w := New(eng, nil)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Load(context.Background()))

	require.NoError(t, w.Initialize(`{"x": "y", "link": 7}`))

	text, err := w.Execute(Payload, `{"x": 2, "link": "a?b=1&c=<x>"}`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"y\": 2,\n  \"7\": \"a?b=1&c=<x>\"\n}", text)
	assert.Equal(t, StatusMessage{Text: "Executed 'payload'", Severity: SeveritySuccess}, w.Status())

	text, err = w.Execute(Response, `{"y": [true], "other": {"k": null}}`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"x\": [\n    true\n  ],\n  \"other\": {\n    \"k\": null\n  }\n}", text)

	text, err = w.Execute(Entity, `[{"attribute_id": 7, "value": 1.5}]`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"link\": 1.5\n}", text)
	assert.Equal(t, text, w.Session.Result())
}
