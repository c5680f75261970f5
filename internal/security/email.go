package security

import (
	"errors"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email address format")

// ValidateEmail checks if the provided email is a valid format to prevent header injection.
func ValidateEmail(email string) error {
	if strings.ContainsAny(email, "\r\n") {
		return ErrInvalidEmail
	}

	atIdx := strings.Index(email, "@")
	dotIdx := strings.LastIndex(email, ".")
	if atIdx < 1 || strings.Count(email, "@") != 1 || dotIdx < atIdx+2 || dotIdx == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}
