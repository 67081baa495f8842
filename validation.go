package dealAuth

import (
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the sign-up minimum, counted in characters.
const MinPasswordLength = 6

// ValidateEmail requires an "@" followed somewhere by a ".". It is a shape
// check, not RFC 5322 validation.
func ValidateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at < 0 || !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces MinPasswordLength.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// CheckPasswordConfirmation is the caller-side check run before SignUp when
// the form has a confirmation field.
func CheckPasswordConfirmation(password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}
	return nil
}
