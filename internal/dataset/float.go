package dataset

import (
	"encoding/json"
	"strconv"
)

// Float is an optional float64. The zero value is the missing marker.
type Float struct {
	Value float64
	Valid bool
}

// FloatFrom returns a present Float holding v.
func FloatFrom(v float64) Float {
	return Float{Value: v, Valid: true}
}

// Missing returns the missing marker.
func Missing() Float {
	return Float{}
}

// Or returns the value, or def when missing.
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// Ptr returns nil when missing, otherwise a pointer to a copy of the
// value. Used for JSON contracts where null means absent.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// String formats the value with minimal digits, or "" when missing.
func (f Float) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

// MarshalJSON encodes missing values as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON decodes null as missing.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FloatFrom(v)
	return nil
}
