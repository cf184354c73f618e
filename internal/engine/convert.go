package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/dop251/goja"
	"github.com/joeycumines/jrbench/internal/jsonvalue"
)

// toJS converts a structured value into a goja value. Records become plain
// objects with properties defined in record order.
func toJS(vm *goja.Runtime, v any) (goja.Value, error) {
	switch v := v.(type) {
	case nil:
		return goja.Null(), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return vm.ToValue(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", v, err)
		}
		return vm.ToValue(f), nil
	case bool, string, int64, float64:
		return vm.ToValue(v), nil
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			jv, err := toJS(vm, item)
			if err != nil {
				return nil, err
			}
			items[i] = jv
		}
		return vm.NewArray(items...), nil
	case *jsonvalue.Record:
		obj := vm.NewObject()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			jv, err := toJS(vm, pair.Value)
			if err != nil {
				return nil, err
			}
			if err := obj.Set(pair.Key, jv); err != nil {
				return nil, err
			}
		}
		return obj, nil
	case *jsonvalue.Map:
		m, err := vm.New(vm.Get("Map"))
		if err != nil {
			return nil, err
		}
		set, ok := goja.AssertFunction(m.Get("set"))
		if !ok {
			return nil, errors.New("Map.prototype.set is not a function")
		}
		for _, e := range v.Entries() {
			k, err := toJS(vm, e.Key)
			if err != nil {
				return nil, err
			}
			val, err := toJS(vm, e.Value)
			if err != nil {
				return nil, err
			}
			if _, err := set(m, k, val); err != nil {
				return nil, err
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// exporter converts engine results back into structured values, following
// the rules JSON.stringify applies to plain data: undefined and functions are
// dropped from objects and become null inside arrays, non-finite numbers
// become null and toJSON methods are honoured. Map instances are exported as
// *jsonvalue.Map so that their entries survive; every other object becomes a
// *jsonvalue.Record of its own enumerable properties.
type exporter struct {
	vm        *goja.Runtime
	arrayFrom goja.Callable
	mapCtor   *goja.Object
	stack     []*goja.Object
}

func newExporter(vm *goja.Runtime) (*exporter, error) {
	arrayFrom, ok := goja.AssertFunction(vm.Get("Array").ToObject(vm).Get("from"))
	if !ok {
		return nil, errors.New("Array.from is not a function")
	}
	return &exporter{
		vm:        vm,
		arrayFrom: arrayFrom,
		mapCtor:   vm.Get("Map").ToObject(vm),
	}, nil
}

// export returns the structured value for v. The boolean is false when the
// value has no JSON representation (undefined, functions, symbols).
func (x *exporter) export(v goja.Value) (any, bool, error) {
	if v == nil || goja.IsUndefined(v) {
		return nil, false, nil
	}
	if goja.IsNull(v) {
		return nil, true, nil
	}

	obj, isObject := v.(*goja.Object)
	if !isObject {
		return x.exportPrimitive(v)
	}

	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return nil, false, nil
	}

	if toJSON, ok := goja.AssertFunction(obj.Get("toJSON")); ok {
		res, err := toJSON(obj)
		if err != nil {
			return nil, false, err
		}
		if res, isObj := res.(*goja.Object); isObj && res == obj {
			return nil, false, errors.New("toJSON returned its receiver")
		}
		return x.export(res)
	}

	for _, seen := range x.stack {
		if seen == obj {
			return nil, false, errors.New("converting circular structure to JSON")
		}
	}
	x.stack = append(x.stack, obj)
	defer func() { x.stack = x.stack[:len(x.stack)-1] }()

	// goja reports "Object" as the class of a Map
	if x.vm.InstanceOf(obj, x.mapCtor) {
		return x.exportMap(obj)
	}

	switch obj.ClassName() {
	case "Array":
		n := obj.Get("length").ToInteger()
		arr := make([]any, 0, n)
		for i := int64(0); i < n; i++ {
			item, ok, err := x.export(obj.Get(strconv.FormatInt(i, 10)))
			if err != nil {
				return nil, false, err
			}
			if !ok {
				item = nil
			}
			arr = append(arr, item)
		}
		return arr, true, nil

	case "Number", "String", "Boolean":
		valueOf, ok := goja.AssertFunction(obj.Get("valueOf"))
		if !ok {
			return nil, false, fmt.Errorf("%s object has no valueOf", obj.ClassName())
		}
		prim, err := valueOf(obj)
		if err != nil {
			return nil, false, err
		}
		return x.exportPrimitive(prim)

	default:
		rec := jsonvalue.NewRecord()
		for _, key := range obj.Keys() {
			val, ok, err := x.export(obj.Get(key))
			if err != nil {
				return nil, false, err
			}
			if ok {
				rec.Set(key, val)
			}
		}
		return rec, true, nil
	}
}

// exportMap returns the entries of a Map. As with Object.fromEntries followed
// by JSON.stringify, entries whose value has no JSON form are dropped, as are
// symbol keys.
func (x *exporter) exportMap(obj *goja.Object) (any, bool, error) {
	pairs, err := x.arrayFrom(goja.Undefined(), obj)
	if err != nil {
		return nil, false, err
	}
	list := pairs.ToObject(x.vm)
	n := list.Get("length").ToInteger()
	m := jsonvalue.NewMap()
	for i := int64(0); i < n; i++ {
		pair := list.Get(strconv.FormatInt(i, 10)).ToObject(x.vm)
		key, ok := exportKey(pair.Get("0"))
		if !ok {
			continue
		}
		val, ok, err := x.export(pair.Get("1"))
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		m.Set(key, val)
	}
	return m, true, nil
}

// exportKey returns a Map key as a scalar the serializer can turn into a
// property name. Numbers keep their value, NaN and infinities included;
// other objects are converted with their toString.
func exportKey(v goja.Value) (any, bool) {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined", true
	case goja.IsNull(v):
		return nil, true
	}
	switch v.(type) {
	case *goja.Symbol:
		return nil, false
	case *goja.Object:
		return v.String(), true
	}
	switch k := v.Export().(type) {
	case bool, string, int64, float64:
		return k, true
	case int:
		return int64(k), true
	default:
		return v.String(), true
	}
}

func (x *exporter) exportPrimitive(v any) (any, bool, error) {
	if jv, ok := v.(goja.Value); ok {
		v = jv.Export()
	}
	switch v := v.(type) {
	case nil:
		return nil, true, nil
	case bool, string, int64:
		return v, true, nil
	case int:
		return int64(v), true, nil
	case float64:
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return nil, true, nil
		case v == 0:
			// folds -0
			return float64(0), true, nil
		}
		return v, true, nil
	case *big.Int:
		return nil, false, errors.New("do not know how to serialize a BigInt")
	default:
		// symbols and other exotic primitives have no JSON form
		return nil, false, nil
	}
}
