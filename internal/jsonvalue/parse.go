package jsonvalue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyInput is returned by Parse for blank text.
var ErrEmptyInput = errors.New("unexpected end of JSON input")

// Parse decodes text as a single JSON value. Objects become *Record values
// with keys in source order (a repeated key keeps its first position and its
// last value), arrays become []any and numbers are kept as json.Number.
//
// Anything other than whitespace after the top-level value is an error.
func Parse(text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, parseError(dec, err)
	}

	switch tok, err := dec.Token(); {
	case errors.Is(err, io.EOF):
		return v, nil
	case err != nil:
		return nil, parseError(dec, err)
	default:
		return nil, fmt.Errorf("unexpected %v after top-level value at offset %d", tok, dec.InputOffset())
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// bool, json.Number, string or nil
		return tok, nil
	}

	switch delim {
	case '{':
		rec := NewRecord()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("expected object key, got %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			rec.Set(key, val)
		}
		if err := closeDelim(dec); err != nil {
			return nil, err
		}
		return rec, nil

	case '[':
		arr := make([]any, 0)
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if err := closeDelim(dec); err != nil {
			return nil, err
		}
		return arr, nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

func closeDelim(dec *json.Decoder) error {
	if _, err := dec.Token(); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func parseError(dec *json.Decoder, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%s (offset %d)", syntaxErr.Error(), syntaxErr.Offset)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("unexpected end of JSON input (offset %d)", dec.InputOffset())
	}
	return err
}
