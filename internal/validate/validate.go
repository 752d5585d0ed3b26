// Package validate checks request payloads and reports typed per-field
// errors. Every handler validates through here instead of ad hoc checks.
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

// Result holds field-level validation messages keyed by JSON field name.
type Result struct {
	Fields map[string]string `json:"fields,omitempty"`
}

// OK reports whether no field failed.
func (r Result) OK() bool { return len(r.Fields) == 0 }

// Error joins field messages in field order.
func (r Result) Error() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + r.Fields[k]
	}
	return strings.Join(parts, "; ")
}

var (
	v       = newValidator()
	phoneRe = regexp.MustCompile(`^[0-9]{10}$`)
	moneyRe = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)
)

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = val.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = val.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		return moneyRe.MatchString(fl.Field().String())
	})
	return val
}

// Struct validates s using its `validate` tags.
func Struct(s interface{}) Result {
	err := v.Struct(s)
	if err == nil {
		return Result{}
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Fields: map[string]string{"_": err.Error()}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return Result{Fields: fields}
}

// fieldPath drops the top-level struct name: "req.items[0].quantity" -> "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid id"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "latitude":
		return "must be a valid latitude"
	case "longitude":
		return "must be a valid longitude"
	case "phone":
		return "must be a 10 digit phone number"
	case "money":
		return "must be an amount with at most 2 decimals"
	case "alphanum":
		return "must contain only letters and digits"
	}
	return "is invalid"
}
