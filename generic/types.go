/*
Package generic provides the domain-agnostic building blocks shared by the
inventory and ledger packages.

PURPOSE:
  Both the factory inventory and the construction ledger deal in the same
  primitives: exact decimal quantities, calendar dates, identifiers, a clock,
  a transactional store and a common error taxonomy. Keeping them here lets
  the domain packages stay focused on their rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantities: decimal.Decimal helpers (parsing, clamping)
  - Clock: injectable source of "now"
  - IDGenerator: injectable source of entity identifiers

DESIGN PRINCIPLES:
  1. Precision: stock levels and money use decimal.Decimal, never float64
  2. Injection: no package-level state; clocks, id sources and stores are
     passed in by the caller
  3. Typed failures: every rejected operation returns an error from errors.go

SEE ALSO:
  - errors.go: error taxonomy
  - time.go: Date (day-granularity calendar date)
  - store.go: Transactor and audit log types
*/
package generic

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITIES
// =============================================================================

// ParseDecimal parses s and wraps failures as a ValidationError for field.
func ParseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Reason: fmt.Sprintf("not a number: %q", s)}
	}
	return d, nil
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ClampZero returns max(0, d).
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock supplies the current time for timestamps and due-date windows.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Used by tests and scenario loads.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// IDGenerator produces unique identifiers for new entities.
type IDGenerator interface {
	NewID(prefix string) string
}

// UUIDGenerator issues "<prefix>-<uuid>" identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// SequenceGenerator issues "<prefix>-1", "<prefix>-2", ... per prefix.
// Deterministic ids keep test fixtures readable.
type SequenceGenerator struct {
	mu   sync.Mutex
	next map[string]int
}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{next: make(map[string]int)}
}

func (g *SequenceGenerator) NewID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.next[prefix])
}
