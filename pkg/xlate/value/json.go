package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// MarshalJSON encodes v as JSON. Maps keep caller field order; Bytes are
// base64 strings; Nil is null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNil:
		return []byte("null"), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.i != 0)
	case KindBytes:
		return json.Marshal(v.b)
	case KindList:
		return json.Marshal(v.items)
	case KindMap:
		return v.m.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON decodes JSON into v. See ParseJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseJSON parses a JSON document into a Value, preserving object key
// order. Numbers must be integers that fit in int64.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSON(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, _ := keyTok.(string)
				item, err := decodeJSON(dec)
				if err != nil {
					return Value{}, fmt.Errorf("%s: %w", key, err)
				}
				if _, dup := m.Set(key, item); dup {
					return Value{}, fmt.Errorf("duplicate key %q", key)
				}
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return FromMap(m), nil
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return Value{}, fmt.Errorf("[%d]: %w", len(items), err)
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(items...), nil
		}
	case json.Number:
		n, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("number %s is not an int64", t)
		}
		return Int(n), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Nil(), nil
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}
