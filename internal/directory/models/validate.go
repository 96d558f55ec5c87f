package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// notfuture rejects years after the current one.
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(now().Year())
	})
	return v
}

// check validates v against its struct tags and reports every violation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return e.Validation(e.FieldError{Field: "body", Message: err.Error()})
	}
	fields := make([]e.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, e.FieldError{Field: fieldPath(fe), Message: describe(fe)})
	}
	return e.Validation(fields...)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	collection := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "timezone":
		return "must be a valid IANA timezone"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "notfuture":
		return "must not be in the future"
	case "min", "gte":
		switch {
		case collection:
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		case fe.Kind() == reflect.String:
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		switch {
		case collection:
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		case fe.Kind() == reflect.String:
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
