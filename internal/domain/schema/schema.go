package schema

import (
	"fmt"
	"time"
)

// Type is the declared type of a field.
type Type int

const (
	TypeFloat Type = iota + 1
	TypeTime
	TypeBool
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "number"
	case TypeTime:
		return "timestamp"
	case TypeBool:
		return "boolean"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ElementName is the field name given to elements of a bare scalar array.
const ElementName = "value"

// Field declares one required record key.
type Field struct {
	Name        string
	Type        Type
	Description string
	// SkipInvalid drops a record whose value for this field is missing or
	// not coercible instead of failing the whole payload.
	SkipInvalid bool
}

// Schema is the expected shape of a responder payload. A schema without
// fields describes a bare array of Element values.
type Schema struct {
	Fields  []Field
	Element Type
	// ExactCount is the required number of elements; zero disables the check.
	ExactCount int
}

// IsRecord reports whether the payload is an array of objects.
func (s Schema) IsRecord() bool {
	return len(s.Fields) > 0
}

// FieldNames returns the required keys in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Record is one validated element. Values hold float64, time.Time, bool or
// string according to the declared field types.
type Record struct {
	Index  int
	Values map[string]any
}

// Float returns a float field.
func (r Record) Float(name string) float64 {
	v, _ := r.Values[name].(float64)
	return v
}

// Time returns a timestamp field.
func (r Record) Time(name string) time.Time {
	v, _ := r.Values[name].(time.Time)
	return v
}

// Bool returns a boolean field.
func (r Record) Bool(name string) bool {
	v, _ := r.Values[name].(bool)
	return v
}

// String returns a string field.
func (r Record) String(name string) string {
	v, _ := r.Values[name].(string)
	return v
}

// Floats collects the elements of a validated bare number array.
func Floats(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Float(ElementName)
	}
	return out
}
