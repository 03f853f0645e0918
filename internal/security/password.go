// Package security generates and checks the passwords given to remote users.
package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!@#$%^*()[]-_+"

	// GeneratedPasswordLength is the length of passwords from GeneratePassword.
	GeneratedPasswordLength = 32

	MinPasswordLength = 8
	MaxPasswordLength = 64
)

var (
	ErrPasswordLength = fmt.Errorf("password must be %d to %d characters", MinPasswordLength, MaxPasswordLength)
	ErrPasswordUpper  = errors.New("password must contain at least one uppercase letter")
	ErrPasswordLower  = errors.New("password must contain at least one lowercase letter")
	ErrPasswordDigit  = errors.New("password must contain at least one digit")
	ErrPasswordSymbol = errors.New("password must contain at least one special symbol")
	errLengthTooShort = errors.New("security: password length must be at least 4")
)

// GeneratePassword returns a random password of GeneratedPasswordLength characters
// containing at least one lowercase letter, uppercase letter, digit and symbol.
func GeneratePassword() (string, error) {
	return generate(GeneratedPasswordLength)
}

func generate(length int) (string, error) {
	if length < 4 {
		return "", errLengthTooShort
	}
	classes := []string{lower, upper, digits, symbols}
	all := strings.Join(classes, "")
	out := make([]byte, length)
	// One character from each class, the rest from the full alphabet, then shuffle.
	for i, class := range classes {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	for i := len(classes); i < length; i++ {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	for i := length - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func pick(alphabet string) (byte, error) {
	i, err := randInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("security: random: %w", err)
	}
	return int(v.Int64()), nil
}

// ValidatePassword checks a caller-supplied password: 8 to 64 characters with at least
// one uppercase letter, lowercase letter, digit and punctuation symbol.
// Returns the first rule that fails.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return ErrPasswordLength
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	switch {
	case !hasUpper:
		return ErrPasswordUpper
	case !hasLower:
		return ErrPasswordLower
	case !hasSymbol:
		return ErrPasswordSymbol
	case !hasDigit:
		return ErrPasswordDigit
	}
	return nil
}
