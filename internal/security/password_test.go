package security

import (
	"errors"
	"strings"
	"testing"
)

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := GeneratePassword()
		if err != nil {
			t.Fatalf("GeneratePassword: %v", err)
		}
		if len(p) != GeneratedPasswordLength {
			t.Errorf("len = %d, want %d", len(p), GeneratedPasswordLength)
		}
		for _, class := range []string{lower, upper, digits, symbols} {
			if !strings.ContainsAny(p, class) {
				t.Errorf("password %q has no character from %q", p, class)
			}
		}
		for _, r := range p {
			if !strings.ContainsRune(lower+upper+digits+symbols, r) {
				t.Errorf("password %q contains %q outside the alphabet", p, r)
			}
		}
		if err := ValidatePassword(p); err != nil {
			t.Errorf("ValidatePassword(generated) = %v", err)
		}
		if seen[p] {
			t.Errorf("duplicate password %q", p)
		}
		seen[p] = true
	}
}

func TestGenerate_MinimumLength(t *testing.T) {
	if _, err := generate(3); err == nil {
		t.Error("generate(3) should fail")
	}
	p, err := generate(4)
	if err != nil {
		t.Fatalf("generate(4): %v", err)
	}
	for _, class := range []string{lower, upper, digits, symbols} {
		if !strings.ContainsAny(p, class) {
			t.Errorf("password %q has no character from %q", p, class)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"valid", "Sup3r$ecret", nil},
		{"too short", "Ab1!", ErrPasswordLength},
		{"too long", "Ab1!" + strings.Repeat("x", 61), ErrPasswordLength},
		{"no upper", "sup3r$ecret", ErrPasswordUpper},
		{"no lower", "SUP3R$ECRET", ErrPasswordLower},
		{"no symbol", "Sup3rSecret", ErrPasswordSymbol},
		{"no digit", "Super$ecret", ErrPasswordDigit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePassword(tt.password); !errors.Is(err, tt.want) {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.want)
			}
		})
	}
}
