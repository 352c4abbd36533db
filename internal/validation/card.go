package validation

import "strings"

const (
	cardLength = 16
	cardPrefix = "603799"
)

// ValidateCardNumber checks an Iranian debit card number: 16 digits,
// issuer prefix 603799, and a passing Luhn checksum.
func ValidateCardNumber(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return invalid("card number is empty")
	}
	if len(raw) != cardLength || !allDigits(raw) {
		return invalid("card number must be exactly 16 digits")
	}
	if !strings.HasPrefix(raw, cardPrefix) {
		return invalid("card number must start with issuer prefix " + cardPrefix)
	}
	if !luhnValid(raw) {
		return invalid("card number fails Luhn checksum")
	}
	return valid("card number is valid")
}

// luhnValid runs the Luhn checksum: from the rightmost digit, double
// every second digit, subtract 9 when the doubled value exceeds 9, and
// require the total to be divisible by 10.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}
