// Package validate wraps go-playground/validator with the identity formats
// used by registration, profiles and document metadata.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the accepted calendar date format.
const DateLayout = "2006-01-02"

var (
	phoneRegex   = regexp.MustCompile(`^[6-9]\d{9}$`)
	aadhaarRegex = regexp.MustCompile(`^\d{12}$`)
	pincodeRegex = regexp.MustCompile(`^\d{6}$`)
)

// Validator validates request structs and reports failures per JSON field.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom tags phone, aadhaar, pincode and isodate registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	_ = v.RegisterValidation("phone", regexValidator(phoneRegex))
	_ = v.RegisterValidation("aadhaar", regexValidator(aadhaarRegex))
	_ = v.RegisterValidation("pincode", regexValidator(pincodeRegex))
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})

	return &Validator{v: v}
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
// and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}

func regexValidator(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Struct validates s and returns a field -> message map, or nil when s is valid.
// Errors that are not validation failures are reported under the "_" key.
func (val *Validator) Struct(s any) map[string]string {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		name := fieldPath(e)
		if _, seen := fields[name]; !seen {
			fields[name] = message(e)
		}
	}
	return fields
}

// Var validates a single value against tag, returning the message or "".
func (val *Validator) Var(v any, tag string) string {
	err := val.v.Var(v, tag)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return message(verrs[0])
	}
	return err.Error()
}

// fieldPath strips the top-level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", e.Param())
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(e.Param()), ", ")
	case "phone":
		return "must be a valid 10-digit Indian mobile number"
	case "aadhaar":
		return "must be a 12-digit Aadhaar number"
	case "pincode":
		return "must be a 6-digit pincode"
	case "isodate":
		return "must be an ISO 8601 date"
	case "numeric":
		return "must be numeric"
	default:
		return "is invalid"
	}
}
