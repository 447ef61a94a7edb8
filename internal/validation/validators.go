package validation

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// DefaultMaxTextLength is the maximum todo text length in characters
	DefaultMaxTextLength = 30
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	markupPolicy = bluemonday.StrictPolicy()
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("todo_id", validateTodoID); err != nil {
		panic(fmt.Sprintf("failed to register todo_id validator: %v", err))
	}
}

// validateTodoID rejects the nil UUID
func validateTodoID(fl validator.FieldLevel) bool {
	id, ok := fl.Field().Interface().(uuid.UUID)
	return ok && id != uuid.Nil
}

// record is the validated shape of a stored todo
type record struct {
	ID   uuid.UUID `validate:"todo_id"`
	Text string    `validate:"required"`
}

// Validator checks todo text before it reaches a store or the visible list
type Validator struct {
	MaxLength        int
	RejectDuplicates bool
	textTag          string
}

// NewValidator creates a validator. maxLength <= 0 uses DefaultMaxTextLength.
func NewValidator(maxLength int, rejectDuplicates bool) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}
	return &Validator{
		MaxLength:        maxLength,
		RejectDuplicates: rejectDuplicates,
		textTag:          fmt.Sprintf("max=%d", maxLength),
	}
}

// Check sanitizes candidate text and validates it against the current collection.
// It returns the sanitized text, or a validation error with a user-facing reason.
func (v *Validator) Check(text string, existing []models.Todo) (string, error) {
	clean, err := v.checkText(text)
	if err != nil {
		return "", err
	}
	if v.RejectDuplicates {
		for _, t := range existing {
			if t.Text == clean {
				return "", todoerrors.NewValidation("Duplicate todo text.")
			}
		}
	}
	return clean, nil
}

// CheckRecord shape-checks a full record. The record's text is sanitized in place.
func (v *Validator) CheckRecord(todo *models.Todo) error {
	clean, err := v.checkText(todo.Text)
	if err != nil {
		return err
	}
	if err := Validate.Struct(record{ID: todo.ID, Text: clean}); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldError := range validationErrors {
				if fieldError.Field() == "ID" {
					return todoerrors.NewValidation("Invalid ID format")
				}
			}
		}
		return todoerrors.NewValidation("Validation failed")
	}
	todo.Text = clean
	return nil
}

func (v *Validator) checkText(text string) (string, error) {
	clean := SanitizeText(text)
	if err := Validate.Var(clean, "required"); err != nil {
		return "", todoerrors.NewValidation("Todo cannot be empty.")
	}
	tag := v.textTag
	if tag == "" {
		tag = fmt.Sprintf("max=%d", DefaultMaxTextLength)
	}
	if err := Validate.Var(clean, tag); err != nil {
		return "", todoerrors.NewValidation(fmt.Sprintf("Todo must not exceed %d characters.", v.maxLength()))
	}
	return clean, nil
}

func (v *Validator) maxLength() int {
	if v.MaxLength <= 0 {
		return DefaultMaxTextLength
	}
	return v.MaxLength
}

// SanitizeText strips markup, turns whitespace control characters into
// spaces, drops the remaining control characters and trims the result
func SanitizeText(text string) string {
	text = StripMarkup(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) {
			if unicode.IsSpace(r) {
				sanitized.WriteRune(' ')
			}
			continue
		}
		sanitized.WriteRune(r)
	}

	return strings.TrimSpace(sanitized.String())
}

// StripMarkup removes HTML elements while keeping plain text intact.
// Entity-encoded markup is peeled one level per pass until the text is stable.
func StripMarkup(text string) string {
	for range len(text) + 1 {
		next := html.UnescapeString(markupPolicy.Sanitize(text))
		if next == text {
			return text
		}
		text = next
	}
	// Not stable: keep it escaped so no markup survives
	return markupPolicy.Sanitize(text)
}
