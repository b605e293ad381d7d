package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator.  Field names
// in messages are the JSON names clients send.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate reports the first failing field.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s field must be provided", fe.Field())
	case "email":
		return fmt.Errorf("%s is not a valid email address", fe.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Errorf("%s failed the %q rule", fe.Field(), fe.Tag())
}

// bind decodes and validates a request body.  Both failures are 422.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Malformed request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
