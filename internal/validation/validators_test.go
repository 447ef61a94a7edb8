package validation

import (
	"strings"
	"testing"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
)

func TestValidator_Check(t *testing.T) {
	t.Parallel()

	existing := []models.Todo{{ID: uuid.New(), Text: "Buy milk"}}

	tests := []struct {
		name       string
		validator  *Validator
		text       string
		want       string
		wantReason string
	}{
		{
			name:      "plain text",
			validator: NewValidator(30, false),
			text:      "Walk dog",
			want:      "Walk dog",
		},
		{
			name:      "trims whitespace",
			validator: NewValidator(30, false),
			text:      "   Walk dog  ",
			want:      "Walk dog",
		},
		{
			name:       "empty",
			validator:  NewValidator(30, false),
			text:       "",
			wantReason: "Todo cannot be empty.",
		},
		{
			name:       "multiply escaped script",
			validator:  NewValidator(30, false),
			text:       "&amp;amp;lt;script&amp;amp;gt;",
			wantReason: "Todo cannot be empty.",
		},
		{
			name:      "multiply escaped tag",
			validator: NewValidator(30, false),
			text:      "&amp;amp;lt;b&amp;amp;gt;x",
			want:      "x",
		},
		{
			name:       "whitespace only",
			validator:  NewValidator(30, false),
			text:       " \t  ",
			wantReason: "Todo cannot be empty.",
		},
		{
			name:       "markup only",
			validator:  NewValidator(30, false),
			text:       "<b></b>",
			wantReason: "Todo cannot be empty.",
		},
		{
			name:       "too long",
			validator:  NewValidator(30, false),
			text:       strings.Repeat("a", 31),
			wantReason: "Todo must not exceed 30 characters.",
		},
		{
			name:      "exactly at bound",
			validator: NewValidator(30, false),
			text:      strings.Repeat("a", 30),
			want:      strings.Repeat("a", 30),
		},
		{
			name:      "bound counts characters not bytes",
			validator: NewValidator(5, false),
			text:      "héllo",
			want:      "héllo",
		},
		{
			name:      "duplicates allowed by default",
			validator: NewValidator(30, false),
			text:      "Buy milk",
			want:      "Buy milk",
		},
		{
			name:       "duplicates rejected when configured",
			validator:  NewValidator(30, true),
			text:       " Buy milk ",
			wantReason: "Duplicate todo text.",
		},
		{
			name:      "zero max uses default",
			validator: NewValidator(0, false),
			text:      strings.Repeat("a", DefaultMaxTextLength),
			want:      strings.Repeat("a", DefaultMaxTextLength),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.validator.Check(tt.text, existing)
			if tt.wantReason != "" {
				if err == nil {
					t.Fatalf("Expected validation error, got text %q", got)
				}
				if !todoerrors.Is(err, todoerrors.ErrValidation) {
					t.Fatalf("Expected validation error code, got %v", err)
				}
				if reason := todoerrors.Reason(err); reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", reason, tt.wantReason)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidator_CheckRecord(t *testing.T) {
	t.Parallel()

	v := NewValidator(30, false)

	valid := models.Todo{ID: uuid.New(), Text: "  <i>Buy</i> milk "}
	if err := v.CheckRecord(&valid); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if valid.Text != "Buy milk" {
		t.Errorf("Expected sanitized text 'Buy milk', got %q", valid.Text)
	}

	noID := models.Todo{Text: "Buy milk"}
	err := v.CheckRecord(&noID)
	if !todoerrors.Is(err, todoerrors.ErrValidation) {
		t.Fatalf("Expected validation error for nil id, got %v", err)
	}
	if reason := todoerrors.Reason(err); reason != "Invalid ID format" {
		t.Errorf("Reason = %q", reason)
	}

	empty := models.Todo{ID: uuid.New(), Text: "   "}
	if err := v.CheckRecord(&empty); !todoerrors.Is(err, todoerrors.ErrValidation) {
		t.Errorf("Expected validation error for empty text, got %v", err)
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Buy milk", "Buy milk"},
		{"control characters", "Buy\x07 milk\x1b", "Buy milk"},
		{"newline becomes space", "Buy\nmilk", "Buy milk"},
		{"tab becomes space", "Buy\tmilk\n", "Buy milk"},
		{"tags stripped", "<b>Buy</b> milk", "Buy milk"},
		{"script removed", "<script>alert(1)</script>Walk dog", "Walk dog"},
		{"escaped three times", "&amp;amp;lt;b&amp;amp;gt;x", "x"},
		{"escaped script three times", "&amp;amp;lt;script&amp;amp;gt;", ""},
		{"literal less-than kept", "a < b", "a < b"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"encoded markup stripped", "&lt;b&gt;bold&lt;/b&gt;", "bold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
