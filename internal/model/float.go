package model

import (
	"encoding/json"
	"math"
)

// Float is an optional float64. The zero value is undefined.
// Comparisons against an undefined Float always evaluate to false.
type Float struct {
	V     float64
	Valid bool
}

// NewFloat wraps v. NaN and ±Inf become undefined.
func NewFloat(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{V: v, Valid: true}
}

// Undefined returns the undefined Float.
func Undefined() Float { return Float{} }

// Get returns the value and whether it is defined.
func (f Float) Get() (float64, bool) { return f.V, f.Valid }

// Less reports f < x. False when f is undefined.
func (f Float) Less(x float64) bool { return f.Valid && f.V < x }

// Greater reports f > x. False when f is undefined.
func (f Float) Greater(x float64) bool { return f.Valid && f.V > x }

// MarshalJSON encodes undefined values as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.V)
}

// UnmarshalJSON decodes null as undefined.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = NewFloat(v)
	return nil
}

// Column is a date-aligned sequence of optional values.
type Column []Float

// NewColumn returns a column of n undefined values.
func NewColumn(n int) Column { return make(Column, n) }

// Defined returns the defined values in order, dropping undefined rows.
func (c Column) Defined() []float64 {
	out := make([]float64, 0, len(c))
	for _, f := range c {
		if f.Valid {
			out = append(out, f.V)
		}
	}
	return out
}

// FirstDefined returns the index of the first defined row, or -1.
func (c Column) FirstDefined() int {
	for i, f := range c {
		if f.Valid {
			return i
		}
	}
	return -1
}

// Last returns the final row, undefined for an empty column.
func (c Column) Last() Float {
	if len(c) == 0 {
		return Float{}
	}
	return c[len(c)-1]
}
