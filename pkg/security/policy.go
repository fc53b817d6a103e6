package security

import (
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// passwordSpecials is the set of symbols that satisfy the special character rule.
const passwordSpecials = "@$!%*?&"

// PasswordProblems lists the strength rules password breaks. An empty result means it is acceptable.
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, "must be at least 8 characters")
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !digit {
		problems = append(problems, "must contain a number")
	}
	if !special {
		problems = append(problems, "must contain one of "+passwordSpecials)
	}
	return problems
}
