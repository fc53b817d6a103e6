package enums

import (
	"fmt"
	"slices"
	"strings"
)

func known[T ~string](value T, set []T) bool {
	return slices.Contains(set, value)
}

// parse matches value against set. Case-insensitive matching also trims whitespace.
func parse[T ~string](kind, value string, set []T, foldCase bool) (T, error) {
	if foldCase {
		value = strings.TrimSpace(value)
	}
	for _, candidate := range set {
		if string(candidate) == value || (foldCase && strings.EqualFold(string(candidate), value)) {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
