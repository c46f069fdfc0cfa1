package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumberFormat(t *testing.T) {
	at := time.Date(2026, 1, 31, 23, 30, 0, 0, time.FixedZone("CLT", -3*3600))
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewOrderNumber(at)
		assert.Regexp(t, `^ORD-20260201-[A-Z0-9]{6}$`, n, "date is taken in UTC")
		seen[n] = true
	}
	assert.Greater(t, len(seen), 45)
}
