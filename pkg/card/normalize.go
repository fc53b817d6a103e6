// Package card formats and validates payment card input captured at checkout.
//
// Every function here is pure: no I/O, no shared state, and no error paths. Normalizers
// always return a best-effort string and validators return plain booleans, so callers can
// run them per keystroke or per request without coordination.
package card

import "strings"

const (
	groupSize    = 4
	expiryDigits = 4
	cvvMaxDigits = 4
)

// NormalizeNumber keeps the digits of input, truncates them to the length allowed for the
// detected network and groups them in blocks of four separated by single spaces.
func NormalizeNumber(input string) string {
	d := digits(input)
	max := NetworkUnknown.MaxDigits()
	if isAmexPrefix(d) {
		max = NetworkAmex.MaxDigits()
	}
	return group(truncate(d, max))
}

// NormalizeExpiry renders up to four digits as MM/YY. The slash appears once two digits
// are present, so "1" stays "1" and "123" becomes "12/3".
func NormalizeExpiry(input string) string {
	d := truncate(digits(input), expiryDigits)
	if len(d) < 2 {
		return d
	}
	return d[:2] + "/" + d[2:]
}

// NormalizeCVV keeps at most four digits.
func NormalizeCVV(input string) string {
	return truncate(digits(input), cvvMaxDigits)
}

// digits drops every character that is not an ASCII digit.
func digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for i := 0; i < len(input); i++ {
		if c := input[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func group(d string) string {
	if len(d) <= groupSize {
		return d
	}
	var b strings.Builder
	b.Grow(len(d) + len(d)/groupSize)
	for i := 0; i < len(d); i++ {
		if i > 0 && i%groupSize == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(d[i])
	}
	return b.String()
}
