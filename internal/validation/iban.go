package validation

import (
	"math/big"
	"strings"
)

const ibanLength = 26

var mod97 = big.NewInt(97)

// ValidateIBAN checks an Iranian IBAN: "IR" followed by 24 digits, and
// a MOD-97 remainder of 1 over the rearranged numeric form.
func ValidateIBAN(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return invalid("IBAN is empty")
	}
	if len(raw) != ibanLength || !strings.HasPrefix(raw, "IR") || !allDigits(raw[2:]) {
		return invalid("IBAN must be 'IR' followed by 24 digits")
	}
	if !ibanChecksumValid(raw) {
		return invalid("IBAN fails MOD-97 checksum")
	}
	return valid("IBAN is valid")
}

// ibanChecksumValid moves the first four characters to the end, maps
// letters to two-digit numerals (A=10 .. Z=35), and checks that the
// resulting integer leaves remainder 1 modulo 97.
func ibanChecksumValid(iban string) bool {
	rearranged := iban[4:] + iban[:4]

	var numeric strings.Builder
	for _, ch := range rearranged {
		switch {
		case ch >= '0' && ch <= '9':
			numeric.WriteRune(ch)
		case ch >= 'A' && ch <= 'Z':
			n := int(ch-'A') + 10
			numeric.WriteByte(byte('0' + n/10))
			numeric.WriteByte(byte('0' + n%10))
		default:
			return false
		}
	}

	value, ok := new(big.Int).SetString(numeric.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(value, mod97).Int64() == 1
}
