package security

import "crypto/subtle"

// ConstantTimeEqual compares two tokens without leaking length-prefix timing.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
