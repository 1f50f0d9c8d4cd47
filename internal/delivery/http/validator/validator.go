// Package validator adapts go-playground/validator to Echo's Validator
// interface.
package validator

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type requestValidator struct {
	validate *validator.Validate
}

// New creates the Echo request validator.
func New() echo.Validator {
	return &requestValidator{
		validate: validator.New(),
	}
}

// Validate checks a bound request struct against its validate tags.
func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}
