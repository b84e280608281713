package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their query or json name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// Bind applies `default` tags, binds the request into req and validates it.
// It returns the problems found, or nil.
func Bind(c echo.Context, req interface{}) []Problem {
	if err := defaults.Set(req); err != nil {
		return []Problem{{Code: "ERR_DEFAULTS", Message: err.Error()}}
	}
	if err := c.Bind(req); err != nil {
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprint(he.Message)
		}
		return []Problem{{Code: "ERR_BIND", Message: msg}}
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return problems(err)
	}
	return nil
}

func problems(err error) []Problem {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Problem{{Code: "ERR_VALIDATION", Message: err.Error()}}
	}
	out := make([]Problem, 0, len(verrs))
	for _, fe := range verrs {
		p := Problem{
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Field:   fe.Field(),
			Message: describe(fe),
		}
		if fe.Param() != "" {
			p.Params = map[string]interface{}{fe.Tag(): fe.Param()}
		}
		out = append(out, p)
	}
	return out
}

var phrases = map[string]string{
	"max":   "must be at most %s",
	"gte":   "must be at least %s",
	"lte":   "must be at most %s",
	"gt":    "must be greater than %s",
	"oneof": "must be one of: %s",
}

func describe(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return fe.Field() + " is required"
	}
	phrase, ok := phrases[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	param := fe.Param()
	if fe.Tag() == "oneof" {
		param = strings.ReplaceAll(param, " ", ", ")
	}
	if fe.Tag() == "max" && fe.Kind() == reflect.String {
		phrase += " characters"
	}
	return fe.Field() + " " + fmt.Sprintf(phrase, param)
}
