package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DigitsOnly drops every rune that is not a decimal digit. Thai digits count.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// IsDigits reports whether s is non-empty and made of decimal digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ZeroPad left-pads s with "0" up to width runes. Longer input is unchanged.
func ZeroPad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat("0", width-n) + s
}

// TruncateRunes keeps at most n runes of s. n <= 0 means no limit.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// CollapseSpace turns every whitespace run into one space and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s for log output.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
