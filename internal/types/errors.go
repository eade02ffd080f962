package types

import (
	"errors"
	"strings"
)

type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ConfigurationError is a local input problem. It blocks step advancement or
// submission and never reaches the generation service.
type ConfigurationError struct {
	Fields []FieldError
}

func (e *ConfigurationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "configuration: invalid"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Msg)
	}
	return "configuration: " + strings.Join(parts, "; ")
}

// Has reports whether the error names field.
func (e *ConfigurationError) Has(field string) bool {
	if e == nil {
		return false
	}
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func NewConfigurationError(field, msg string) *ConfigurationError {
	return &ConfigurationError{Fields: []FieldError{{Field: field, Msg: msg}}}
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

type fieldErrors []FieldError

func (fe *fieldErrors) require(ok bool, field, msg string) {
	if !ok {
		*fe = append(*fe, FieldError{Field: field, Msg: msg})
	}
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ConfigurationError{Fields: fe}
}
