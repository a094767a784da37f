package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues lexicographically sortable references for orders and
// withdrawals. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *Generator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// OrderID returns a gateway-facing order reference, e.g. ORD-01J....
func (g *Generator) OrderID() string {
	return "ORD-" + g.next()
}

// WithdrawalCode returns a unique payout request code, e.g. WD-01J....
func (g *Generator) WithdrawalCode() string {
	return "WD-" + g.next()
}
