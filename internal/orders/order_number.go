package orders

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"time"
)

const (
	orderNumberPrefix   = "ORD"
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberSuffix   = 6
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[A-Z0-9]{6}$`)

// NumberGenerator produces order numbers for a point in time.
type NumberGenerator func(now time.Time) (string, error)

// NewNumberGenerator draws suffix characters from src. crypto/rand.Reader is
// used when src is nil.
func NewNumberGenerator(src io.Reader) NumberGenerator {
	if src == nil {
		src = rand.Reader
	}
	limit := big.NewInt(int64(len(orderNumberAlphabet)))
	return func(now time.Time) (string, error) {
		suffix := make([]byte, orderNumberSuffix)
		for i := range suffix {
			n, err := rand.Int(src, limit)
			if err != nil {
				return "", fmt.Errorf("generate order number: %w", err)
			}
			suffix[i] = orderNumberAlphabet[n.Int64()]
		}
		return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format("20060102"), suffix), nil
	}
}

// ValidOrderNumber reports whether s has the ORD-YYYYMMDD-XXXXXX shape.
func ValidOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
