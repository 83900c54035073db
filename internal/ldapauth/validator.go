package ldapauth

import (
	"errors"

	"github.com/go-playground/validator"
)

// RequestValidator проверяет тела запросов по тегам validate.
type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validator.New()}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		var vErrs validator.ValidationErrors
		if !errors.As(err, &vErrs) {
			return nil
		}
		return err
	}
	return nil
}
