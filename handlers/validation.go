package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type registerForm struct {
	Name     string `validate:"required,max=50"`
	Email    string `validate:"required,email,max=100"`
	Password string `validate:"required,min=8,max=72"`
}

type loginForm struct {
	Email    string `validate:"required,max=100"`
	Password string `validate:"required,max=100"`
}

type commentForm struct {
	Content string `validate:"required,max=10000"`
	Type    string `validate:"oneof=comment answer"`
}

type newPostForm struct {
	Title   string   `validate:"required,max=200"`
	Content string   `validate:"required,max=10000"`
	Type    string   `validate:"oneof=question forum tutorial news job"`
	Tags    []string `validate:"min=1,max=5,dive,max=50,excludesall=+"`
}

type voteForm struct {
	Type string `validate:"oneof=up bookmark"`
}

// fieldErrors flattens validator output into field -> message, the shape the
// JSON endpoints answer with.
func fieldErrors(err error) map[string]string {
	errs := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["form"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			errs[field] = fmt.Sprintf("%s cannot be empty", fe.Field())
		case "max":
			if fe.Kind() == reflect.Slice {
				errs[field] = fmt.Sprintf("%s cannot have more than %s entries", fe.Field(), fe.Param())
			} else {
				errs[field] = fmt.Sprintf("%s cannot be longer than %s characters", fe.Field(), fe.Param())
			}
		case "min":
			if fe.Kind() == reflect.Slice {
				errs[field] = fmt.Sprintf("%s needs at least %s entries", fe.Field(), fe.Param())
			} else {
				errs[field] = fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
			}
		case "email":
			errs[field] = "Invalid email format"
		case "excludesall":
			errs[field] = fmt.Sprintf("%s cannot contain %q", fe.Field(), fe.Param())
		case "oneof":
			errs[field] = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			errs[field] = fmt.Sprintf("%s is invalid", fe.Field())
		}
	}
	return errs
}
