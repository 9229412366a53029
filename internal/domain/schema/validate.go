package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

// Error codes reported by the validator.
const (
	CodeMalformedJSON         = "malformed_json"
	CodeUnexpectedRecordCount = "unexpected_record_count"
	CodeFieldTypeMismatch     = "field_type_mismatch"
)

// CountError reports a payload with the wrong number of elements.
type CountError struct {
	Expected int
	Actual   int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("expected %d records, got %d", e.Expected, e.Actual)
}

// FieldError reports the first field that is missing or not coercible.
type FieldError struct {
	Field  string
	Index  int
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("record %d field %q: %s (value %s)", e.Index, e.Field, e.Reason, e.Value)
}

// TimeLayouts are the accepted encodings for timestamp fields.
var TimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

const maxValueEcho = 64

// Validate parses payload and checks it against the schema.
func (s Schema) Validate(payload string) ([]Record, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &elems); err != nil {
		return nil, apperrors.Wrap(CodeMalformedJSON, "payload is not a valid JSON array", err)
	}

	if s.ExactCount > 0 && len(elems) != s.ExactCount {
		return nil, apperrors.Wrap(CodeUnexpectedRecordCount, "unexpected record count", &CountError{
			Expected: s.ExactCount,
			Actual:   len(elems),
		})
	}

	records := make([]Record, 0, len(elems))
	for i, raw := range elems {
		var (
			rec  Record
			keep = true
			err  error
		)
		if s.IsRecord() {
			rec, keep, err = s.validateRecord(i, raw)
		} else {
			rec, err = s.validateElement(i, raw)
		}
		if err != nil {
			return nil, apperrors.Wrap(CodeFieldTypeMismatch, "field type mismatch", err)
		}
		if keep {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s Schema) validateElement(index int, raw json.RawMessage) (Record, error) {
	v, err := coerce(s.Element, raw)
	if err != nil {
		return Record{}, &FieldError{Field: ElementName, Index: index, Value: echo(raw), Reason: err.Error()}
	}
	return Record{Index: index, Values: map[string]any{ElementName: v}}, nil
}

// validateRecord coerces one object. keep is false when a SkipInvalid field
// rejected the record.
func (s Schema) validateRecord(index int, raw json.RawMessage) (rec Record, keep bool, err error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Record{}, false, &FieldError{Field: s.Fields[0].Name, Index: index, Value: echo(raw), Reason: "record is not an object"}
	}
	values := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		fieldRaw, ok := obj[f.Name]
		if !ok {
			if f.SkipInvalid {
				return Record{}, false, nil
			}
			return Record{}, false, &FieldError{Field: f.Name, Index: index, Value: "<missing>", Reason: "required field missing"}
		}
		v, err := coerce(f.Type, fieldRaw)
		if err != nil {
			if f.SkipInvalid {
				return Record{}, false, nil
			}
			return Record{}, false, &FieldError{Field: f.Name, Index: index, Value: echo(fieldRaw), Reason: err.Error()}
		}
		values[f.Name] = v
	}
	return Record{Index: index, Values: values}, true, nil
}

func coerce(t Type, raw json.RawMessage) (any, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch t {
	case TypeFloat:
		return coerceFloat(trimmed)
	case TypeTime:
		return coerceTime(trimmed)
	case TypeBool:
		return coerceBool(trimmed)
	case TypeString:
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, fmt.Errorf("not a string")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func coerceFloat(raw string) (float64, error) {
	text := raw
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal([]byte(raw), &text); err != nil {
			return 0, fmt.Errorf("not a number")
		}
		text = strings.TrimSpace(text)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number")
	}
	return v, nil
}

func coerceTime(raw string) (time.Time, error) {
	var text string
	if err := json.Unmarshal([]byte(raw), &text); err != nil {
		return time.Time{}, fmt.Errorf("timestamp must be a string")
	}
	if ts, ok := ParseTime(text); ok {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// ParseTime parses text with any of TimeLayouts. Results are in UTC.
func ParseTime(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range TimeLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func coerceBool(raw string) (bool, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	var text string
	if err := json.Unmarshal([]byte(raw), &text); err == nil {
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("not a boolean")
}

func echo(raw json.RawMessage) string {
	s := string(raw)
	if len(s) > maxValueEcho {
		return s[:maxValueEcho] + "..."
	}
	return s
}
