package validation

import "strings"

// ValidateCellphone checks an Iranian mobile number: 11 digits starting
// with the 09 operator prefix.
func ValidateCellphone(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return invalid("cellphone number is empty")
	}
	if len(raw) != 11 || !strings.HasPrefix(raw, "09") || !allDigits(raw) {
		return invalid("cellphone number must be 11 digits starting with 09")
	}
	return valid("cellphone number is valid")
}
