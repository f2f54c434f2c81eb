package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MetaKind identifies the scalar type held by a MetaValue.
type MetaKind int

const (
	MetaString MetaKind = iota
	MetaInt
	MetaFloat
	MetaBool
)

// MetaValue is a closed scalar variant used for alert metadata.
// Only strings, integers, floats and booleans are representable;
// nested structures are rejected at the boundary.
type MetaValue struct {
	Kind  MetaKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// Metadata is a typed key/value bag attached to an alert.
type Metadata map[string]MetaValue

// String returns a string MetaValue.
func String(s string) MetaValue { return MetaValue{Kind: MetaString, Str: s} }

// Int returns an integer MetaValue.
func Int(i int64) MetaValue { return MetaValue{Kind: MetaInt, Int: i} }

// Float returns a float MetaValue.
func Float(f float64) MetaValue { return MetaValue{Kind: MetaFloat, Float: f} }

// Bool returns a boolean MetaValue.
func Bool(b bool) MetaValue { return MetaValue{Kind: MetaBool, Bool: b} }

// Value returns the wrapped scalar as an any.
func (v MetaValue) Value() any {
	switch v.Kind {
	case MetaInt:
		return v.Int
	case MetaFloat:
		return v.Float
	case MetaBool:
		return v.Bool
	default:
		return v.Str
	}
}

// Text renders the value as a string for logging and notifications.
func (v MetaValue) Text() string {
	switch v.Kind {
	case MetaInt:
		return strconv.FormatInt(v.Int, 10)
	case MetaFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case MetaBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// MarshalJSON encodes the value as its underlying scalar.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Value())
}

// UnmarshalJSON decodes a scalar JSON value. Objects and arrays are rejected.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case string:
		*v = String(val)
	case bool:
		*v = Bool(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := val.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("metadata value %q is not a valid number", val.String())
		}
		*v = Float(f)
	case nil:
		*v = String("")
	default:
		return fmt.Errorf("metadata values must be scalar, got %T", raw)
	}
	return nil
}
