package validation

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/metatrack/errors"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// mimeTypePattern matches type/subtype with an optional +codec suffix, as
// in application/json+zstd.
var mimeTypePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.-]*/[a-z0-9][a-z0-9!#$&^_.+-]*$`)

func engine() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(keyName)
		_ = v.RegisterValidation("mimetype", func(fl validator.FieldLevel) bool {
			return mimeTypePattern.MatchString(strings.ToLower(fl.Field().String()))
		})
		structValidator = v
	})
	return structValidator
}

// keyName reports struct fields by their config key: the mapstructure tag,
// then the json tag, then the snake-cased Go name.
func keyName(fld reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return toSnakeCase(fld.Name)
}

// Validate checks s against its `validate` tags. Besides the validator/v10
// built-ins, the mimetype tag accepts type/subtype[+codec]. Failures come
// back as one INVALID_INPUT AppError listing every field by config key.
func Validate(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Validation("validation failed").WithCause(err)
	}

	v := New()
	for _, fe := range fieldErrs {
		v.AddError(keyPath(fe), describe(fe))
	}
	return v.Err()
}

// keyPath drops the root struct from the namespace, so nested fields read
// as pipeline.dispatch.queue_capacity.
func keyPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return toSnakeCase(fe.Field())
}

var tagMessages = map[string]string{
	"required":      "is required",
	"gt":            "must be greater than %s",
	"gte":           "must be greater than or equal to %s",
	"lt":            "must be less than %s",
	"lte":           "must be less than or equal to %s",
	"oneof":         "must be one of: %s",
	"hostname_port": "must be host:port",
	"mimetype":      "must be a MIME type such as text/plain",
	"url":           "must be a valid URL",
	"uuid":          "must be a valid UUID",
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		msg := "must be " + bound + " " + fe.Param()
		if fe.Kind() == reflect.String {
			msg += " characters"
		}
		return msg
	}
	tmpl, ok := tagMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(tmpl, "%s") {
		return strings.Replace(tmpl, "%s", fe.Param(), 1)
	}
	return tmpl
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
