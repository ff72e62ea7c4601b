// Package validate wraps go-playground/validator with JSON field names and
// client-facing reasons.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return val
}

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error lists every failing field. Fields are sorted by name.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Reason
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a hand-written check result to e, allocating e when nil.
func (e *Error) Add(field, reason string) *Error {
	if e == nil {
		e = &Error{}
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
	return e
}

// Err returns e as an error, or nil when there is nothing to report.
func (e *Error) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	sort.SliceStable(e.Fields, func(i, j int) bool { return e.Fields[i].Field < e.Fields[j].Field })
	return e
}

// Struct checks s against its validate tags.
func Struct(s any) *Error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return (&Error{}).Add("", err.Error())
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Add(fe.Field(), reason(fe))
	}
	return out
}

func Var(value any, tag string) error {
	return v.Var(value, tag)
}

func As(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.Join(oneOfValues(fe.Param()), ", ")
	case "datetime":
		return "must be a valid date in YYYY-MM-DD format"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}

var oneOfParam = regexp.MustCompile(`'[^']*'|\S+`)

func oneOfValues(param string) []string {
	values := oneOfParam.FindAllString(param, -1)
	for i, value := range values {
		values[i] = strings.Trim(value, "'")
	}
	return values
}
