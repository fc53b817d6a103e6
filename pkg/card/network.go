package card

import (
	"fmt"
	"strings"
)

// Network identifies the card scheme inferred from the number prefix.
type Network string

const (
	NetworkVisa       Network = "visa"
	NetworkMastercard Network = "mastercard"
	NetworkAmex       Network = "amex"
	NetworkDiscover   Network = "discover"
	NetworkUnknown    Network = "unknown"
)

var validNetworks = []Network{
	NetworkVisa,
	NetworkMastercard,
	NetworkAmex,
	NetworkDiscover,
	NetworkUnknown,
}

var networkDisplayNames = map[Network]string{
	NetworkVisa:       "Visa",
	NetworkMastercard: "Mastercard",
	NetworkAmex:       "American Express",
	NetworkDiscover:   "Discover",
}

// String implements fmt.Stringer.
func (n Network) String() string {
	return string(n)
}

// IsValid reports whether the value is a known Network.
func (n Network) IsValid() bool {
	for _, candidate := range validNetworks {
		if candidate == n {
			return true
		}
	}
	return false
}

// DisplayName is the label shown next to a saved card.
func (n Network) DisplayName() string {
	if name, ok := networkDisplayNames[n]; ok {
		return name
	}
	return "Credit Card"
}

// MaxDigits is the number of digits the input normalizer retains.
func (n Network) MaxDigits() int {
	if n == NetworkAmex {
		return 15
	}
	return 16
}

// ParseNetwork converts raw input into a Network.
func ParseNetwork(value string) (Network, error) {
	for _, candidate := range validNetworks {
		if string(candidate) == strings.ToLower(strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid card network %q", value)
}

// DetectNetwork classifies a card number by prefix. Separators in the input are ignored.
// Rules are checked in order: visa, mastercard, amex, discover.
func DetectNetwork(input string) Network {
	d := digits(input)
	switch {
	case strings.HasPrefix(d, "4"):
		return NetworkVisa
	case hasPrefixInRange(d, '5', '1', '5'), hasPrefixInRange(d, '2', '2', '7'):
		return NetworkMastercard
	case isAmexPrefix(d):
		return NetworkAmex
	case strings.HasPrefix(d, "6011"), strings.HasPrefix(d, "65"):
		return NetworkDiscover
	default:
		return NetworkUnknown
	}
}

func isAmexPrefix(d string) bool {
	return strings.HasPrefix(d, "34") || strings.HasPrefix(d, "37")
}

// hasPrefixInRange matches a two digit prefix whose second digit lies in [lo, hi].
func hasPrefixInRange(d string, first, lo, hi byte) bool {
	if len(d) < 2 || d[0] != first {
		return false
	}
	return d[1] >= lo && d[1] <= hi
}
