// Package core provides form value parsing for bills.
//
// This file contains the integer parsing used for the amount and pct
// fields of the new bill form.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseLeadingInt reads the integer at the start of s.
//
// Leading whitespace and one sign are allowed; parsing stops at the first
// non-digit. It returns false when no digit is found or the value does not
// fit in an int.
//
// Examples:
//
//	ParseLeadingInt("100")    -> 100, true
//	ParseLeadingInt("12.50")  -> 12, true
//	ParseLeadingInt(" 42 EUR") -> 42, true
//	ParseLeadingInt("abc")    -> 0, false
func ParseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseAmount returns the bill amount for a form value, or nil when the
// value holds no number.
func ParseAmount(s string) *int {
	v, ok := ParseLeadingInt(s)
	if !ok {
		return nil
	}
	return &v
}

// ParsePct returns the VAT percentage for a form value. Blank, invalid and
// zero values all fall back to DefaultPct.
func ParsePct(s string) int {
	v, ok := ParseLeadingInt(s)
	if !ok || v == 0 {
		return DefaultPct
	}
	return v
}
