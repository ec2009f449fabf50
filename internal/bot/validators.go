package bot

import (
	"strings"

	"golang.org/x/text/width"
)

// digitsOnly folds full-width digits to ASCII and drops everything else.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, width.Narrow.String(s))
}

// NormalizePhoneNumber keeps the digits of a phone number; hyphens, spaces,
// parentheses and a leading '+' are dropped.
func NormalizePhoneNumber(phone string) string {
	return digitsOnly(phone)
}

func IsValidPhoneNumber(phone string) bool {
	cleaned := digitsOnly(phone)

	// Japanese numbers have 10 or 11 digits, international ones up to 15
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}

	badNumbers := map[string]bool{
		"0000000000":  true,
		"00000000000": true,
		"1111111111":  true,
		"1234567890":  true,
		"0123456789":  true,
		"9999999999":  true,
	}
	return !badNumbers[cleaned]
}

// NormalizePostalCode returns the digits of a postal code such as "〒100-0001".
func NormalizePostalCode(postal string) string {
	return digitsOnly(postal)
}
