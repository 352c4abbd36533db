package validation

import "strings"

const nationalIDLength = 10

// Degenerate inputs that satisfy the checksum by construction but are
// never issued as real identifiers.
var disallowedIDs = map[string]struct{}{
	"0000000000": {},
	"1111111111": {},
	"2222222222": {},
	"3333333333": {},
	"4444444444": {},
	"5555555555": {},
	"6666666666": {},
	"7777777777": {},
	"8888888888": {},
	"9999999999": {},
	"0123456789": {},
	"9876543210": {},
}

// ValidateNationalID checks an Iranian national ID: exactly 10 digits,
// not a degenerate sequence, and a passing weighted checksum.
func ValidateNationalID(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return invalid("national ID is empty")
	}
	if len(raw) != nationalIDLength || !allDigits(raw) {
		return invalid("national ID must be exactly 10 digits")
	}
	if _, banned := disallowedIDs[raw]; banned {
		return invalid("national ID matches a disallowed repetitive or sequential pattern")
	}
	if !nationalIDChecksumValid(raw) {
		return invalid("national ID fails checksum")
	}
	return valid("national ID is valid")
}

// nationalIDChecksumValid multiplies digits 0..8 by weights 10..2, sums
// them, and takes the remainder mod 11. A remainder below 2 must equal
// the check digit directly; otherwise the check digit must be 11 minus
// the remainder.
func nationalIDChecksumValid(id string) bool {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(id[i]-'0') * (10 - i)
	}
	remainder := sum % 11
	check := int(id[9] - '0')
	if remainder < 2 {
		return check == remainder
	}
	return check == 11-remainder
}
