package encyclopedia

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NewCategory is the input for creating a category. ID is generated when empty.
type NewCategory struct {
	ID          string `validate:"omitempty,max=120"`
	Title       string `validate:"required,max=300"`
	Description string
	Verified    bool
	Disputed    bool
}

// NewLink is the input for creating a link.
type NewLink struct {
	Title         string `validate:"max=1000"`
	URL           string `validate:"required,url"`
	Excerpt       string
	PlatformLabel string
	Timestamp     *time.Time
	KindOverride  Kind `validate:"omitempty,oneof=news social search legal other"`
	Legal         *LegalExtension
}

// ValidationError reports user input that failed validation. No state is
// mutated when it is returned.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks a struct against its validate tags.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidKind reports whether k is one of the known kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindNews, KindSocial, KindSearch, KindLegal, KindOther:
		return true
	}
	return false
}

func validateURL(raw string) error {
	if err := validate.Var(raw, "required,url"); err != nil {
		return &ValidationError{Fields: []string{"url must be a valid URL"}}
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, formatFieldError(e))
	}
	return &ValidationError{Fields: fields}
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
