package card

// LastFour returns the trailing four digits of a card number, or every digit when shorter.
func LastFour(input string) string {
	d := digits(input)
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}

// Mask renders a card number for receipts and order history, e.g. "**** **** **** 1234".
func Mask(input string) string {
	last := LastFour(input)
	if last == "" {
		return ""
	}
	return "**** **** **** " + last
}
