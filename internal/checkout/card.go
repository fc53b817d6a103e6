package checkout

import (
	"github.com/papelisco/storefront/pkg/card"
)

var cardFieldMessages = map[string]struct{ path, message string }{
	card.FieldNumber: {"card.number", "Invalid card number"},
	card.FieldExpiry: {"card.expiry", "Invalid or expired date"},
	card.FieldCVV:    {"card.cvv", "Invalid CVV"},
	card.FieldName:   {"card.name", "Cardholder name is required"},
}

// cardProblems turns the failing card fields into request paths with messages.
func cardProblems(failed []string) map[string]string {
	if len(failed) == 0 {
		return nil
	}
	problems := make(map[string]string, len(failed))
	for _, field := range failed {
		entry, ok := cardFieldMessages[field]
		if !ok {
			entry.path, entry.message = "card."+field, "is invalid"
		}
		problems[entry.path] = entry.message
	}
	return problems
}
