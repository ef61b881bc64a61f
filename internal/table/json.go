package table

// json.go reads JSON documents into tables.
//
// The document is either an array of objects (one row each) or a single
// object. A single object whose only member is an array of objects is
// unwrapped, which matches the {"data": [...]} envelope most APIs return;
// any other object becomes a one-row table. Nested objects are flattened
// into dotted column names ("address.city") and arrays are kept as compact
// JSON text. Columns appear in the order their keys are first seen, and
// leaf values go through the same inference as CSV cells.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyJSON is returned when a JSON document holds no records.
var ErrEmptyJSON = errors.New("json contains no records")

// maxJSONDepth bounds object nesting while decoding.
const maxJSONDepth = 64

// ReadJSON parses a JSON document into a table.
func ReadJSON(r io.Reader) (*Table, error) {
	t, _, err := ReadJSONCounted(r)
	return t, err
}

// ReadJSONCounted is ReadJSON that also reports the bytes consumed.
func ReadJSONCounted(r io.Reader) (*Table, int64, error) {
	in := wrapInput(r)
	dec := json.NewDecoder(in)
	dec.UseNumber()

	doc, err := decodeValue(dec, 0)
	if err == io.EOF {
		return nil, in.n, ErrEmptyJSON
	}
	if err != nil {
		return nil, in.n, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, in.n, errors.New("invalid json: unexpected data after top-level value")
	}

	records, err := recordsOf(doc)
	if err != nil {
		return nil, in.n, err
	}
	if len(records) == 0 {
		return nil, in.n, ErrEmptyJSON
	}

	var names []string
	index := make(map[string]int)
	rows := make([]map[string]string, len(records))
	for i, rec := range records {
		row := make(map[string]string)
		flatten("", rec, row, func(name string) {
			if _, ok := index[name]; !ok {
				index[name] = len(names)
				names = append(names, name)
			}
		})
		rows[i] = row
	}
	if len(names) == 0 {
		return nil, in.n, ErrEmptyJSON
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, in.n, errors.New("invalid json: record has a blank key")
		}
	}

	cols := make([]*Column, len(names))
	for j, name := range names {
		raw := make([]string, len(rows))
		for i, row := range rows {
			raw[i] = row[name]
		}
		cols[j] = Infer(name, raw)
	}
	t, err := New(cols...)
	return t, in.n, err
}

// object is a decoded JSON object that remembers its key order.
type object struct {
	keys []string
	vals map[string]any
}

// decodeValue reads one JSON value. Objects decode to *object, arrays to
// []any and numbers to json.Number.
func decodeValue(dec *json.Decoder, depth int) (any, error) {
	if depth > maxJSONDepth {
		return nil, fmt.Errorf("nesting exceeds %d levels", maxJSONDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &object{vals: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", kt)
			}
			v, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			if _, dup := obj.vals[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.vals[key] = v
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		return obj, nil
	case '[':
		var arr []any
		for dec.More() {
			v, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		if arr == nil {
			arr = []any{}
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// recordsOf picks the row objects out of a decoded document.
func recordsOf(doc any) ([]*object, error) {
	switch v := doc.(type) {
	case []any:
		return objectsOf(v)
	case *object:
		if len(v.keys) == 1 {
			if arr, ok := v.vals[v.keys[0]].([]any); ok {
				return objectsOf(arr)
			}
		}
		return []*object{v}, nil
	case nil:
		return nil, nil
	}
	return nil, errors.New("invalid json: expected an object or an array of objects")
}

func objectsOf(arr []any) ([]*object, error) {
	out := make([]*object, 0, len(arr))
	for i, el := range arr {
		switch v := el.(type) {
		case *object:
			out = append(out, v)
		case nil:
			out = append(out, &object{vals: map[string]any{}})
		default:
			return nil, fmt.Errorf("invalid json: record %d is not an object", i+1)
		}
	}
	return out, nil
}

// flatten writes the leaves of obj into row under dotted names, calling
// seen for every column name in document order.
func flatten(prefix string, obj *object, row map[string]string, seen func(string)) {
	for _, k := range obj.keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := obj.vals[k].(*object); ok && len(nested.keys) > 0 {
			flatten(name, nested, row, seen)
			continue
		}
		seen(name)
		row[name] = leafText(obj.vals[k])
	}
}

// leafText renders a JSON leaf as a CSV-style cell. Null and the empty
// object become the empty cell.
func leafText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case *object:
		if len(x.keys) == 0 {
			return ""
		}
	}
	var b bytes.Buffer
	writeCompact(&b, v)
	return b.String()
}

// writeCompact re-encodes a decoded value, keeping object key order.
func writeCompact(b *bytes.Buffer, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		enc, _ := json.Marshal(x)
		b.Write(enc)
	case json.Number:
		b.WriteString(x.String())
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case []any:
		b.WriteByte('[')
		for i, el := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCompact(b, el)
		}
		b.WriteByte(']')
	case *object:
		b.WriteByte('{')
		for i, k := range x.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(k)
			b.Write(enc)
			b.WriteByte(':')
			writeCompact(b, x.vals[k])
		}
		b.WriteByte('}')
	}
}
