package orders

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberSuffix   = 6
	orderNumberAttempts = 5
)

// NewOrderNumber returns ORD-<UTC yyyymmdd>-<6 uppercase alphanumerics>. Uniqueness is
// enforced by the orders.order_number constraint; callers retry on collision.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, orderNumberSuffix)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + string(suffix)
}
