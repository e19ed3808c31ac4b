// Package validation provides input validation utilities built on
// go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"clubhouse/internal/models"

	"github.com/go-playground/validator/v10"
)

// MaxCommentLength is the longest accepted comment body, in characters.
const MaxCommentLength = 10000

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}][\p{L}\p{M}\p{N}_-]*[\p{L}\p{M}\p{N}]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	must(v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}))
	must(v.RegisterValidation("comment_body", func(fl validator.FieldLevel) bool {
		body := strings.TrimSpace(fl.Field().String())
		return body != "" && utf8.RuneCountInString(body) <= MaxCommentLength
	}))
	must(v.RegisterValidation("entity_kind", func(fl validator.FieldLevel) bool {
		return models.EntityKind(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("subject_kind", func(fl validator.FieldLevel) bool {
		_, err := models.ParseSubjectKind(fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidateUsername(fl.Field().String()) == nil
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct validates s and returns a ValidationError naming every failing
// field, or nil.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return models.NewValidationError(fmt.Sprintf("validation failed: %v", err))
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	return models.NewValidationError(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "comment_body":
		return fmt.Sprintf("%s must be 1-%d characters", fe.Field(), MaxCommentLength)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "entity_kind", "subject_kind":
		return fmt.Sprintf("%s %q is not supported", fe.Field(), fe.Value())
	}
	return fmt.Sprintf("field '%s' failed validation: %s", fe.Field(), fe.Tag())
}

// CommentBody checks a comment body without a surrounding struct.
func CommentBody(body string) error {
	if err := validate.Var(body, "comment_body"); err != nil {
		if strings.TrimSpace(body) == "" {
			return models.NewValidationError("Content is required")
		}
		return models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", MaxCommentLength))
	}
	return nil
}
