package token

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the token tags registered:
//
//	amount   - positive integer string (IsValidAmount)
//	decimals - integer string in [0, 18] (IsValidDecimals)
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		return IsValidAmount(fl.Field().String())
	})
	_ = v.RegisterValidation("decimals", func(fl validator.FieldLevel) bool {
		return IsValidDecimals(fl.Field().String())
	})
	return v
}

// Describe turns validator output into a single human readable message.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "amount":
		return fmt.Sprintf("%s must be a positive integer without leading zeros, got %q", fe.Field(), fe.Value())
	case "decimals":
		return fmt.Sprintf("%s must be an integer between 0 and %d, got %q", fe.Field(), MaxDecimals, fe.Value())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
