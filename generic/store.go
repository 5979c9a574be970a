/*
store.go - Transaction boundary and audit log shared by every store

PURPOSE:
  Domain packages declare their own repository interfaces (inventory.Repository,
  ledger.Repository). What they share is the unit-of-work boundary: a
  Transactor runs a function so that every repository call made with the
  context it receives is committed together or not at all.

CONTEXT-SCOPED TRANSACTIONS:
  WithTx hands fn a derived context. Implementations stash their transaction
  handle in it; repository methods called with that context join the
  transaction, calls made with any other context do not.

  err := store.WithTx(ctx, func(ctx context.Context) error {
      if err := store.UpdateItem(ctx, a); err != nil {
          return err // rolled back
      }
      return store.UpdateItem(ctx, b)
  })

AUDIT LOG:
  Append-only. Entries are never edited or deleted.

IMPLEMENTATIONS:
  - store/memory: snapshot + restore on error
  - store/sqlite: database/sql transaction
*/
package generic

import (
	"context"
	"time"
)

// Transactor runs fn atomically.
type Transactor interface {
	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through fn's context is rolled back.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// =============================================================================
// AUDIT LOG - Append-only record of every mutating operation
// =============================================================================

type AuditCategory string

const (
	AuditProduction AuditCategory = "production"
	AuditRestock    AuditCategory = "restock"
	AuditSystem     AuditCategory = "system"
)

func (c AuditCategory) Valid() bool {
	switch c {
	case AuditProduction, AuditRestock, AuditSystem:
		return true
	}
	return false
}

// AuditEntry records what happened and when.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	Message   string
	Category  AuditCategory
}

type AuditFilter struct {
	Categories []AuditCategory
	Limit      int // 0 = no limit
}

// Matches reports whether e passes the category filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == e.Category {
			return true
		}
	}
	return false
}
