package dto

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/blogdraft/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names in errors are the JSON
// (or form) names of the struct fields.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(wireName)
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})

	return validate
}

func wireName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}

		if name != "" {
			return name
		}
	}

	return fld.Name
}

// Validate runs struct tag validation and reports failures as
// domain.ValidationErrors. Values that are not structs carry no tags and
// always pass.
func Validate(v any) error {
	if !isStruct(v) {
		return nil
	}

	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.NewValidationError("", err.Error())
	}

	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &domain.ValidationError{Field: fe.Field(), Message: message(fe)})
	}

	return out
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t != nil && t.Kind() == reflect.Struct
}

// BindJSON decodes the request body into v and validates it.
func BindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewValidationError("body", "request body is too large")
		}

		return domain.NewValidationError("body", "request body is not valid JSON")
	}

	return Validate(v)
}

// BindQuery decodes query parameters into v and validates it.
func BindQuery(c *gin.Context, v any) error {
	if err := c.ShouldBindQuery(v); err != nil {
		return domain.NewValidationError("query", "invalid query parameters")
	}

	return Validate(v)
}

var messages = map[string]string{
	"required": "is required",
	"notblank": "must not be blank",
	"gte":      "must be greater than or equal to {param}",
	"lte":      "must be less than or equal to {param}",
	"oneof":    "must be one of {param}",
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		unit := ""
		if fe.Kind() == reflect.String {
			unit = " characters"
		}

		bound := "at least "
		if fe.Tag() == "max" {
			bound = "at most "
		}

		return "must be " + bound + fe.Param() + unit
	}

	if msg, ok := messages[fe.Tag()]; ok {
		return strings.ReplaceAll(msg, "{param}", strings.ReplaceAll(fe.Param(), " ", ", "))
	}

	return "failed " + fe.Tag() + " validation"
}
