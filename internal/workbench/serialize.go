package workbench

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joeycumines/jrbench/internal/jsonvalue"
)

// Serialize renders an engine result as JSON indented by two spaces.
// Associative containers (*jsonvalue.Map) are first rewritten, at any depth,
// as plain records holding the same pairs in insertion order. HTML-sensitive
// characters are written as is, at every depth.
func Serialize(v any) (string, error) {
	w := newJSONWriter()
	if err := w.write(normalize(v)); err != nil {
		return "", fmt.Errorf("serializing result: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, w.out.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("serializing result: %w", err)
	}
	return out.String(), nil
}

// jsonWriter writes compact JSON. Records are walked here rather than through
// their MarshalJSON, which escapes HTML.
type jsonWriter struct {
	out     bytes.Buffer
	scratch bytes.Buffer
	enc     *json.Encoder
}

func newJSONWriter() *jsonWriter {
	w := &jsonWriter{}
	w.enc = json.NewEncoder(&w.scratch)
	w.enc.SetEscapeHTML(false)
	return w
}

func (w *jsonWriter) write(v any) error {
	switch v := v.(type) {
	case *jsonvalue.Record:
		if v == nil {
			w.out.WriteString("null")
			return nil
		}
		w.out.WriteByte('{')
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if pair != v.Oldest() {
				w.out.WriteByte(',')
			}
			if err := w.leaf(pair.Key); err != nil {
				return err
			}
			w.out.WriteByte(':')
			if err := w.write(pair.Value); err != nil {
				return err
			}
		}
		w.out.WriteByte('}')
		return nil
	case []any:
		w.out.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				w.out.WriteByte(',')
			}
			if err := w.write(item); err != nil {
				return err
			}
		}
		w.out.WriteByte(']')
		return nil
	default:
		return w.leaf(v)
	}
}

func (w *jsonWriter) leaf(v any) error {
	w.scratch.Reset()
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	w.out.Write(bytes.TrimSuffix(w.scratch.Bytes(), []byte("\n")))
	return nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case *jsonvalue.Map:
		rec := jsonvalue.NewRecord()
		for _, e := range v.Entries() {
			// Set keeps the first position of a repeated key
			rec.Set(propertyKey(e.Key), normalize(e.Value))
		}
		return rec
	case *jsonvalue.Record:
		if v == nil {
			return nil
		}
		rec := jsonvalue.NewRecord()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			rec.Set(pair.Key, normalize(pair.Value))
		}
		return rec
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// propertyKey converts a container key to the string a JavaScript object
// would use as its property name.
func propertyKey(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(k)
	case int64:
		return strconv.FormatInt(k, 10)
	case float64:
		return numberKey(k)
	case json.Number:
		return k.String()
	case []any:
		parts := make([]string, len(k))
		for i, item := range k {
			if item != nil {
				parts[i] = propertyKey(item)
			}
		}
		return strings.Join(parts, ",")
	case *jsonvalue.Map:
		return "[object Map]"
	case *jsonvalue.Record:
		return "[object Object]"
	default:
		return fmt.Sprint(k)
	}
}

// numberKey formats f the way JavaScript's Number.prototype.toString does:
// plain decimal notation between 1e-6 and 1e21, exponent form outside it.
func numberKey(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + exp
}
