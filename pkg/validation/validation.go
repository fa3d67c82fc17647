// Package validation checks inbound request bodies and query strings against
// struct-tag rule tables. Unknown fields are rejected, never dropped, and
// every violated rule is reported at once.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"userhub/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validator evaluates request shapes. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct runs the rule table of s and returns a ValidationFailed fault that
// lists every violation.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Internal("validation failed", err)
	}

	details := make([]apperror.FieldViolation, 0, len(verrs))
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := describe(fe)
		details = append(details, apperror.FieldViolation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: msg,
		})
		messages = append(messages, msg)
	}
	return apperror.Validation(strings.Join(messages, "; "), details)
}

// BindBody decodes the JSON request body into dst in whitelist mode and then
// validates it. An empty body is treated as an empty object.
func (v *Validator) BindBody(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return apperror.Validation("request body must contain a single JSON object", nil)
	}

	return v.Struct(dst)
}

// BindQuery parses the query string into dst in whitelist mode and then
// validates it. Allowed keys are the `query` tags of dst.
func (v *Validator) BindQuery(c *fiber.Ctx, dst any) error {
	allowed := queryKeys(dst)

	var unknown []string
	for key := range c.Queries() {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return whitelistError(unknown)
	}

	if err := c.QueryParser(dst); err != nil {
		return apperror.Validation(fmt.Sprintf("invalid query string: %v", err), nil)
	}
	return v.Struct(dst)
}

func bodyError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return apperror.Validation("request body is not valid JSON", nil)
	case errors.As(err, &typeErr):
		return apperror.Validation(fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type), []apperror.FieldViolation{
			{Field: typeErr.Field, Rule: "type", Message: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)},
		})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return whitelistError([]string{field})
	case errors.Is(err, io.ErrUnexpectedEOF):
		return apperror.Validation("request body is not valid JSON", nil)
	default:
		return apperror.Validation(fmt.Sprintf("invalid request body: %v", err), nil)
	}
}

func whitelistError(fields []string) error {
	details := make([]apperror.FieldViolation, 0, len(fields))
	messages := make([]string, 0, len(fields))
	for _, f := range fields {
		msg := fmt.Sprintf("property %s should not exist", f)
		details = append(details, apperror.FieldViolation{Field: f, Rule: "whitelist", Message: msg})
		messages = append(messages, msg)
	}
	return apperror.Validation(strings.Join(messages, "; "), details)
}

func queryKeys(dst any) map[string]struct{} {
	keys := make(map[string]struct{})
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return keys
	}
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("query"), ",", 2)[0]
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if isNumeric(fe.Kind()) {
			return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if isNumeric(fe.Kind()) {
			return fmt.Sprintf("%s must not be greater than %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "username":
		return fmt.Sprintf("%s may only contain letters, digits, underscores and hyphens", field)
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
