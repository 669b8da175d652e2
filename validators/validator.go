// Package validators plugs go-playground/validator into echo and turns the first
// failing field into a user-facing message.
package validators

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/go-playground/validator/v10"
)

// CustomValidator implements echo.Validator.
type CustomValidator struct {
	validate *validator.Validate
}

// NewValidator creates a CustomValidator
func NewValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

// Validate checks i and returns a *models.AppError carrying the message tag of the
// first invalid field. Fields are checked in declaration order.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewValidationError(err.Error())
	}
	return models.NewValidationError(messageFor(i, verrs[0]))
}

func messageFor(i interface{}, fe validator.FieldError) string {
	t := reflect.TypeOf(i)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := f.Tag.Get("message"); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
