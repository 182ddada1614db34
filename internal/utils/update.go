package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ErrNoValidFields is returned when an update payload carries nothing to write.
var ErrNoValidFields = errors.New("No valid fields to update")

// ValidationError carries the field errors found while building an update.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValueKind is the JSON type an updatable field accepts.
type ValueKind int

const (
	StringValue ValueKind = iota
	NumberValue
	BoolValue
	// DateValue is a string normalized to YYYY-MM-DD.
	DateValue
	// JSONValue is any JSON document, stored serialized.
	JSONValue
	// ObjectValue is a JSON object, stored serialized.
	ObjectValue
)

// UpdateField maps a request key onto a column. Column names are fixed in
// code; nothing from the request is ever written into query text.
type UpdateField struct {
	Key    string
	Column string
	Kind   ValueKind
	// Rule is a validator tag applied to the decoded value, e.g. "email".
	Rule string
}

// UpdateSpec is the allowlist of updatable fields for one table.
type UpdateSpec struct {
	Table       string
	Fields      []UpdateField
	TouchColumn string
	Now         func() time.Time
}

// UpdateStatement is a parameterized UPDATE ready to be executed.
type UpdateStatement struct {
	Table       string
	Assignments []string
	Args        []interface{}
	Keys        []string
	TouchColumn string
	TouchedAt   time.Time
}

// Has reports whether the statement writes the given request key.
func (s *UpdateStatement) Has(key string) bool {
	_, ok := s.Value(key)
	return ok
}

// Value returns the converted value the statement writes for key.
func (s *UpdateStatement) Value(key string) (interface{}, bool) {
	for i, k := range s.Keys {
		if k == key {
			return s.Args[i], true
		}
	}
	return nil, false
}

// SQL renders the statement with the given WHERE clause, which must use
// `?` placeholders.
func (s *UpdateStatement) SQL(where string) string {
	sets := append([]string{}, s.Assignments...)
	if s.TouchColumn != "" {
		sets = append(sets, s.TouchColumn+" = ?")
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.Table, strings.Join(sets, ", "), where)
}

// Bind returns the statement values followed by the WHERE arguments.
func (s *UpdateStatement) Bind(whereArgs ...interface{}) []interface{} {
	args := append([]interface{}{}, s.Args...)
	if s.TouchColumn != "" {
		args = append(args, s.TouchedAt)
	}
	return append(args, whereArgs...)
}

// Build turns a partial update payload into a statement. Keys outside the
// allowlist and null values are ignored. Fragments follow the order of
// Fields. It returns ErrNoValidFields when nothing is left to write and a
// *ValidationError when a value is malformed.
func (u UpdateSpec) Build(payload map[string]interface{}) (*UpdateStatement, error) {
	stmt := &UpdateStatement{Table: u.Table, TouchColumn: u.TouchColumn}
	var invalid []FieldError

	for _, f := range u.Fields {
		raw, ok := payload[f.Key]
		if !ok || raw == nil {
			continue
		}
		value, msg := f.convert(raw)
		if msg != "" {
			invalid = append(invalid, FieldError{Field: f.Key, Message: msg})
			continue
		}
		stmt.Assignments = append(stmt.Assignments, f.Column+" = ?")
		stmt.Args = append(stmt.Args, value)
		stmt.Keys = append(stmt.Keys, f.Key)
	}

	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}
	if len(stmt.Assignments) == 0 {
		return nil, ErrNoValidFields
	}

	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	stmt.TouchedAt = now().UTC()
	return stmt, nil
}

func (f UpdateField) convert(raw interface{}) (interface{}, string) {
	var value interface{}
	switch f.Kind {
	case StringValue:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string"
		}
		s = strings.TrimSpace(s)
		if s == "" && strings.Contains(f.Rule, "required") {
			return nil, "cannot be empty"
		}
		value = s
	case NumberValue:
		n, ok := raw.(float64)
		if !ok {
			return nil, "must be a number"
		}
		value = n
	case BoolValue:
		b, ok := raw.(bool)
		if !ok {
			return nil, "must be a boolean"
		}
		value = b
	case DateValue:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string"
		}
		d, ok := NormalizeDate(s)
		if !ok {
			return nil, "must be a valid ISO 8601 date"
		}
		value = d
	case JSONValue, ObjectValue:
		if _, ok := raw.(map[string]interface{}); !ok && f.Kind == ObjectValue {
			return nil, "must be an object"
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, "must be valid JSON"
		}
		return datatypes.JSON(b), ""
	}

	if f.Rule != "" {
		if err := validate.Var(value, f.Rule); err != nil {
			return nil, FieldErrors(err)[0].Message
		}
	}
	return value, ""
}
