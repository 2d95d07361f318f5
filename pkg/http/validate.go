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

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ReadAndValidateRequest binds the body into req, fills `default` tags and
// validates it. It returns nil when req is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return []ValidationError{{Code: "ERR_BIND", Message: bindMessage(err)}}
	}
	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Code: "ERR_DEFAULTS", Message: err.Error()}}
	}
	err := validate.StructCtx(c.Request().Context(), req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Code: "ERR_VALIDATION", Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, fieldError(fe))
	}
	return out
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}

// ruleText maps a validator tag to its message suffix and the param key that
// carries the tag argument.
var ruleText = map[string]struct{ text, param string }{
	"required": {"is required", ""},
	"datetime": {"must match the layout %s", "layout"},
	"gt":       {"must be greater than %s", "value"},
	"gte":      {"must be greater than or equal to %s", "min"},
	"lt":       {"must be less than %s", "value"},
	"lte":      {"must be less than or equal to %s", "max"},
	"min":      {"must be at least %s", "min"},
	"max":      {"must be at most %s", "max"},
	"oneof":    {"must be one of: %s", "options"},
}

func fieldError(fe validator.FieldError) ValidationError {
	ve := ValidationError{
		Code:  "ERR_" + strings.ToUpper(fe.Tag()),
		Field: fe.Field(),
	}
	rule, ok := ruleText[fe.Tag()]
	if !ok {
		ve.Message = fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
		return ve
	}

	arg := fe.Param()
	if fe.Tag() == "oneof" {
		arg = strings.ReplaceAll(arg, " ", ", ")
	}
	text := rule.text
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
		text += " characters"
	}
	if strings.Contains(text, "%s") {
		text = fmt.Sprintf(text, arg)
	}
	ve.Message = fe.Field() + " " + text

	switch {
	case rule.param == "options":
		ve.Params = map[string]interface{}{"options": strings.Fields(fe.Param())}
	case rule.param != "":
		ve.Params = map[string]interface{}{rule.param: fe.Param()}
	}
	return ve
}
