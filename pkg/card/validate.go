package card

import (
	"strconv"
	"strings"
	"time"
)

const (
	minNumberDigits = 13
	maxNumberDigits = 19
)

// Field keys reported by Validate.
const (
	FieldNumber = "card_number"
	FieldExpiry = "expiry"
	FieldCVV    = "cvv"
	FieldName   = "cardholder_name"
)

// Input is the raw card payload submitted with an order.
type Input struct {
	Number string
	Expiry string
	CVV    string
	Name   string
}

// ValidateNumber reports whether input holds 13 to 19 digits that pass the Luhn checksum.
func ValidateNumber(input string) bool {
	d := digits(input)
	if len(d) < minNumberDigits || len(d) > maxNumberDigits {
		return false
	}
	return luhn(d)
}

// ValidateExpiry reports whether input is a MM/YY date that has not passed relative to now.
// The current month is still valid; years are read as 20YY.
func ValidateExpiry(input string, now time.Time) bool {
	d := digits(input)
	if len(d) != expiryDigits {
		return false
	}
	month, _ := strconv.Atoi(d[:2])
	yy, _ := strconv.Atoi(d[2:])
	if month < 1 || month > 12 {
		return false
	}
	year := 2000 + yy
	if year != now.Year() {
		return year > now.Year()
	}
	return month >= int(now.Month())
}

// ValidateCVV reports whether input holds three or four digits.
func ValidateCVV(input string) bool {
	n := len(digits(input))
	return n == 3 || n == 4
}

// Validate runs every field check and returns the keys of the failing fields in a fixed
// order. An empty result means valid. CVV length is not matched against the detected network.
func Validate(in Input, now time.Time) []string {
	var failed []string
	if !ValidateNumber(in.Number) {
		failed = append(failed, FieldNumber)
	}
	if !ValidateExpiry(in.Expiry, now) {
		failed = append(failed, FieldExpiry)
	}
	if !ValidateCVV(in.CVV) {
		failed = append(failed, FieldCVV)
	}
	if strings.TrimSpace(in.Name) == "" {
		failed = append(failed, FieldName)
	}
	return failed
}

// luhn expects a digits-only string.
func luhn(d string) bool {
	sum := 0
	double := false
	for i := len(d) - 1; i >= 0; i-- {
		n := int(d[i] - '0')
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
