package utils

import (
	"errors"
	"os"
	"strings"
)

// ErrInvalidPhone is returned when a raw number cannot be normalized
var ErrInvalidPhone = errors.New("invalid phone number")

// DefaultCountryCode returns the country prefix applied to bare domestic
// numbers, configurable via DEFAULT_COUNTRY_CODE (digits only, no plus)
func DefaultCountryCode() string {
	if v := os.Getenv("DEFAULT_COUNTRY_CODE"); v != "" {
		return v
	}
	return "1"
}

// NormalizePhone canonicalizes a raw phone string into dialable form:
//   - strips all non-digit characters except a leading +
//   - a bare 10-digit number is assumed domestic and prefixed with the
//     default country code
//   - a leading 0 followed by 10 digits has the 0 stripped and gets the
//     default country prefix
//   - a number already in international form (+ followed by 8-15 digits,
//     not starting with 0) passes through unchanged
//
// Anything else is invalid. The canonical form is the only form stored and
// checked throughout the system, DNC registry included.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidPhone
	}

	international := strings.HasPrefix(s, "+")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	cc := DefaultCountryCode()

	if international {
		if len(digits) < 8 || len(digits) > 15 || strings.HasPrefix(digits, "0") {
			return "", ErrInvalidPhone
		}
		return "+" + digits, nil
	}

	switch {
	case len(digits) == 10:
		return "+" + cc + digits, nil
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return "+" + cc + digits[1:], nil
	default:
		return "", ErrInvalidPhone
	}
}

// PairKey builds the dedupe key for a (contact, number) pair
func PairKey(contactID, phoneNumber string) string {
	return contactID + "|" + phoneNumber
}
