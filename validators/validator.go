package validators

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator adapts validator.Validate to echo.Validator and to the page
// forms.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a validator with the project's custom rules registered.
func NewValidator() *CustomValidator {
	v := validator.New()
	// notblank rejects empty and whitespace-only strings
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &CustomValidator{validator: v}
}

// Struct validates i and returns the raw validator error.
func (cv *CustomValidator) Struct(i interface{}) error {
	return cv.validator.Struct(i)
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
			"success": false,
			"errors":  FieldErrors(err),
		})
	}
	return nil
}

// FieldErrors flattens a validation error into field -> failed tag. Field
// names use the lower-camel form of the struct field.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			out["_"] = err.Error()
		}
		return out
	}
	for _, fe := range verrs {
		name := fe.Field()
		if name != "" {
			name = strings.ToLower(name[:1]) + name[1:]
		}
		out[name] = fe.Tag()
	}
	return out
}
