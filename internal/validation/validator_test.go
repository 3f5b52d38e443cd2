package validation

import (
	"strings"
	"testing"
)

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid short", "Ana", false},
		{"valid unicode", "José", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 41), true},
		{"max length", strings.Repeat("a", 40), false},
		{"sql pattern", "Rob'; DROP TABLE users", true},
		{"xss pattern", "<script>alert(1)</script>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDisplayName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDisplayName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChatMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "good game everyone", false},
		{"empty is a no-op, not an error", "", false},
		{"apostrophe is not flagged as SQL", "it's a good game", false},
		{"max length", strings.Repeat("a", 500), false},
		{"too long", strings.Repeat("a", 501), true},
		{"javascript scheme", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateChatMessage(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChatMessage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStringLengthRunes(t *testing.T) {
	if err := ValidateStringLength("José", 1, 4, "name"); err != nil {
		t.Errorf("expected 4-rune string to pass a max-4 check, got %v", err)
	}
}

func TestValidateUUID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"empty", "", true},
		{"malformed", "not-a-uuid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUUID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUUID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
