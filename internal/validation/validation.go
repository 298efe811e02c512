// Package validation holds the shared validator instance and the custom tags used by request DTOs.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	mustRegister(v)
	return v
}

func mustRegister(v *validator.Validate) {
	if err := v.RegisterValidation("phone", validatePhone); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("contact_email", validateEmail); err != nil {
		panic(err)
	}
}

// RegisterGinValidators adds the custom tags to gin's binding engine so
// ShouldBindJSON enforces them too.
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	if err := v.RegisterValidation("phone", validatePhone); err != nil {
		return err
	}
	return v.RegisterValidation("contact_email", validateEmail)
}

// Struct validates s against its binding tags.
func Struct(s interface{}) error {
	return validate.Struct(s)
}

func IsEmail(s string) bool { return emailRegex.MatchString(s) }

func IsPhone(s string) bool { return phoneRegex.MatchString(s) }

// A blank value passes: it clears an optional field, and "required" covers presence.
func validatePhone(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	return s == "" || IsPhone(s)
}

func validateEmail(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	return s == "" || IsEmail(s)
}

// Message flattens validator errors into one human readable sentence.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldMessage(e))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email", "contact_email":
		return field + " must be a valid email address"
	case "phone":
		return field + " must be 9 to 15 digits with an optional leading +"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}
