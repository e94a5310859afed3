package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/taskapi/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes one rejected input value. Loc is the path to the value,
// starting with where it came from: "body", "query" or "path".
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(loc []string, msg, typ string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Loc: loc, Msg: msg, Type: typ}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateTaskInput returns in with the title trimmed, or a *ValidationError
// listing every rule that failed.
func ValidateTaskInput(in domain.TaskInput) (domain.TaskInput, error) {
	raw := in.Title
	in.Title = strings.TrimSpace(in.Title)
	err := validate.Struct(in)
	if err == nil {
		return in, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.TaskInput{}, err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		f := describe(fe)
		if fe.Field() == "title" && fe.Tag() == "required" && raw != "" {
			f.Msg = "Title must not be blank"
			f.Type = "value_error"
		}
		ve.Fields = append(ve.Fields, f)
	}
	return domain.TaskInput{}, ve
}

func describe(fe validator.FieldError) FieldError {
	f := FieldError{Loc: []string{"body", fe.Field()}}
	switch fe.Tag() {
	case "required":
		f.Msg, f.Type = "Field required", "missing"
	case "min":
		f.Msg, f.Type = fmt.Sprintf("String should have at least %s characters", fe.Param()), "string_too_short"
	case "max":
		f.Msg, f.Type = fmt.Sprintf("String should have at most %s characters", fe.Param()), "string_too_long"
	default:
		f.Msg, f.Type = fmt.Sprintf("Failed the %q rule", fe.Tag()), fe.Tag()
	}
	return f
}
