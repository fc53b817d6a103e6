package checkout

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	orderNumberSuffix = 9
	base36Alphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewOrderNumber formats ORD-<unix millis>-<9 uppercase base36 chars>.
func NewOrderNumber(now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(orderNumberPrefix)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < orderNumberSuffix; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36Alphabet[n.Int64()])
	}
	return b.String(), nil
}
