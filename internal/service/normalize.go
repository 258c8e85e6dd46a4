package service

import "strings"

// NormalizePhone keeps only the ASCII digits of raw
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PrefixSuccessor increments a decimal digit string as a number, keeping
// leading zeros: "987" -> "988", "0099" -> "0100", "999" -> "1000".
// bounded is false when the carry lengthened the string; such a successor
// sorts before the prefix byte-wise and cannot close a range scan.
func PrefixSuccessor(prefix string) (successor string, bounded bool) {
	digits := []byte(prefix)
	for i := len(digits) - 1; i >= 0; i-- {
		if digits[i] < '9' {
			digits[i]++
			return string(digits), true
		}
		digits[i] = '0'
	}
	return "1" + string(digits), false
}
