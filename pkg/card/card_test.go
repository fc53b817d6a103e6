package card

import (
	"slices"
	"strconv"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func TestNormalizeNumber(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"4", "4"},
		{"4111", "4111"},
		{"41111", "4111 1"},
		{"4111-1111 1111 1111", "4111 1111 1111 1111"},
		{"4111111111111111999", "4111 1111 1111 1111"},
		{"378282246310005", "3782 8224 6310 005"},
		{"3782822463100051234", "3782 8224 6310 005"},
		{"6011 0000 0000 0004 12", "6011 0000 0000 0004"},
		{"abc", ""},
		{" 5 5 0 0 ", "5500"},
	}
	for _, tc := range cases {
		if got := NormalizeNumber(tc.in); got != tc.want {
			t.Fatalf("NormalizeNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizersAreIdempotent(t *testing.T) {
	inputs := []string{
		"", "4", "41111", "4111 1111 1111 1111", "3782-822463-10005", "9999999999999999999",
		"12", "123", "12/25", "1/2/3/4", "12345", "x1y2z3",
	}
	for _, in := range inputs {
		once := NormalizeNumber(in)
		if twice := NormalizeNumber(once); twice != once {
			t.Fatalf("NormalizeNumber not idempotent for %q: %q then %q", in, once, twice)
		}
		exp := NormalizeExpiry(in)
		if twice := NormalizeExpiry(exp); twice != exp {
			t.Fatalf("NormalizeExpiry not idempotent for %q: %q then %q", in, exp, twice)
		}
		cvv := NormalizeCVV(in)
		if twice := NormalizeCVV(cvv); twice != cvv {
			t.Fatalf("NormalizeCVV not idempotent for %q: %q then %q", in, cvv, twice)
		}
	}
}

func TestNormalizeExpiry(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"1", "1"},
		{"12", "12/"},
		{"123", "12/3"},
		{"1225", "12/25"},
		{"12/25", "12/25"},
		{"122599", "12/25"},
		{"ab", ""},
	}
	for _, tc := range cases {
		if got := NormalizeExpiry(tc.in); got != tc.want {
			t.Fatalf("NormalizeExpiry(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeCVV(t *testing.T) {
	cases := map[string]string{"": "", "12a3": "123", "12345": "1234", " 9 ": "9"}
	for in, want := range cases {
		if got := NormalizeCVV(in); got != want {
			t.Fatalf("NormalizeCVV(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectNetworkPrecedence(t *testing.T) {
	cases := []struct {
		in   string
		want Network
	}{
		{"4111111111111111", NetworkVisa},
		{"4111 1111 1111 1111", NetworkVisa},
		{"5500000000000004", NetworkMastercard},
		{"2221000000000009", NetworkMastercard},
		{"2720999999999996", NetworkMastercard},
		{"340000000000009", NetworkAmex},
		{"3700-000000-00002", NetworkAmex},
		{"6011000000000004", NetworkDiscover},
		{"6500000000000002", NetworkDiscover},
		{"9999999999999999", NetworkUnknown},
		{"5600000000000000", NetworkUnknown},
		{"2800000000000000", NetworkUnknown},
		{"6012000000000000", NetworkUnknown},
		{"", NetworkUnknown},
	}
	for _, tc := range cases {
		if got := DetectNetwork(tc.in); got != tc.want {
			t.Fatalf("DetectNetwork(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestNetworkDisplayName(t *testing.T) {
	if got := NetworkAmex.DisplayName(); got != "American Express" {
		t.Fatalf("unexpected amex display name %q", got)
	}
	if got := NetworkUnknown.DisplayName(); got != "Credit Card" {
		t.Fatalf("unexpected fallback display name %q", got)
	}
	if _, err := ParseNetwork("diners"); err == nil {
		t.Fatalf("expected error for unknown network")
	}
	if n, err := ParseNetwork(" Visa "); err != nil || n != NetworkVisa {
		t.Fatalf("expected visa, got %q err=%v", n, err)
	}
}

func TestValidateNumberKnownCards(t *testing.T) {
	valid := []string{
		"4111111111111111",
		"4111 1111 1111 1111",
		"5500000000000004",
		"340000000000009",
		"6011000000000004",
		"4222222222222",
		"4000000000000000006",
	}
	for _, n := range valid {
		if !ValidateNumber(n) {
			t.Fatalf("expected %q to be valid", n)
		}
	}
	invalid := []string{
		"",
		"4111111111111112",
		"411111111111",
		"41111111111111111111",
		"abcd efgh ijkl mnop",
	}
	for _, n := range invalid {
		if ValidateNumber(n) {
			t.Fatalf("expected %q to be invalid", n)
		}
	}
}

func TestValidateNumberLuhnRoundTrip(t *testing.T) {
	prefixes := []string{
		"41111111111111", "400000000000000", "55000000000000", "37828224631000",
		"601100000000000", "12345678901234", "98765432109876",
	}
	for _, prefix := range prefixes {
		number := prefix + checkDigit(prefix)
		if !ValidateNumber(number) {
			t.Fatalf("expected %q to validate", number)
		}
		for i := range number {
			for delta := 1; delta <= 9; delta++ {
				flipped := []byte(number)
				flipped[i] = byte('0' + (int(number[i]-'0')+delta)%10)
				if ValidateNumber(string(flipped)) {
					t.Fatalf("single digit change %q -> %q still validates", number, flipped)
				}
			}
		}
	}
}

func TestValidateExpiry(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"05/25", false},
		{"06/25", true},
		{"13/25", false},
		{"00/30", false},
		{"12/24", false},
		{"07/25", true},
		{"01/26", true},
		{"0625", true},
		{"6/25", false},
		{"06/2025", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidateExpiry(tc.in, fixedNow); got != tc.want {
			t.Fatalf("ValidateExpiry(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidateCVVBounds(t *testing.T) {
	cases := map[string]bool{"12": false, "123": true, "1234": true, "12345": false, "": false, "1a2b3": true}
	for in, want := range cases {
		if got := ValidateCVV(in); got != want {
			t.Fatalf("ValidateCVV(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidateReportsFailingFields(t *testing.T) {
	failed := Validate(Input{Number: "4111111111111112", Expiry: "05/25", CVV: "12", Name: " "}, fixedNow)
	want := []string{FieldNumber, FieldExpiry, FieldCVV, FieldName}
	if !slices.Equal(failed, want) {
		t.Fatalf("Validate() = %v, want %v", failed, want)
	}

	if got := Validate(Input{Number: "4111111111111111", Expiry: "12/30", CVV: "1", Name: "Ada"}, fixedNow); !slices.Equal(got, []string{FieldCVV}) {
		t.Fatalf("Validate() = %v, want only %s", got, FieldCVV)
	}

	ok := Validate(Input{Number: "4111 1111 1111 1111", Expiry: "12/30", CVV: "123", Name: "Ada Lovelace"}, fixedNow)
	if len(ok) != 0 {
		t.Fatalf("expected no errors, got %v", ok)
	}
}

func TestValidateDoesNotCrossCheckCVVAgainstNetwork(t *testing.T) {
	errs := Validate(Input{Number: "340000000000009", Expiry: "12/30", CVV: "123", Name: "A"}, fixedNow)
	if len(errs) != 0 {
		t.Fatalf("expected three digit CVV to pass for amex, got %v", errs)
	}
}

func TestMask(t *testing.T) {
	if got := Mask("4111 1111 1111 1234"); got != "**** **** **** 1234" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := Mask(""); got != "" {
		t.Fatalf("expected empty mask, got %q", got)
	}
	if got := LastFour("12"); got != "12" {
		t.Fatalf("unexpected last four %q", got)
	}
}

// checkDigit computes the Luhn digit that makes prefix+digit valid.
func checkDigit(prefix string) string {
	sum := 0
	double := true
	for i := len(prefix) - 1; i >= 0; i-- {
		n := int(prefix[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return strconv.Itoa((10 - sum%10) % 10)
}
