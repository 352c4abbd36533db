// Package validation contains the checksum validators applied to
// financial identifiers before a payment request is allowed anywhere
// near a provider. Every validator is a pure function over its input
// string: the outcome, including the reason text, is returned by value
// so validators can be shared freely across goroutines.
package validation

// Result is the outcome of one validation pass.
type Result struct {
	Valid  bool
	Reason string
}

func valid(reason string) Result {
	return Result{Valid: true, Reason: reason}
}

func invalid(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
