/*
Package inventory implements the factory stock model and the bill-of-materials
production engine.

KEY CONCEPTS:
  - StockItem: a raw material, semi-finished good or finished good
  - RecipeLine: one (component, quantity-per-unit) pair of a producible good
  - Movement: append-only record of a stock change (restock or production)
  - Production run: quantity x recipe, checked and applied all-or-nothing

STOCK MUTATIONS:
  OnHand changes only through Service.Restock and Service.Produce. Both write
  movements and one audit entry in the same store transaction as the stock
  update.

ONE LEVEL ONLY:
  Producing a good consumes its direct components. A semi-finished component
  that is out of stock is a shortage; it is never produced implicitly.

SEE ALSO:
  - engine.go: feasibility and planning
  - recipe.go: RecipeBook and the ingredient resolver
  - service.go: store-backed operations
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND KINDS
// =============================================================================

type ItemID string

type Kind string

const (
	KindRawMaterial  Kind = "raw_material"
	KindSemiFinished Kind = "semi_finished"
	KindFinished     Kind = "finished"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRawMaterial, KindSemiFinished, KindFinished:
		return true
	}
	return false
}

// Producible reports whether items of this kind carry a recipe.
func (k Kind) Producible() bool {
	return k == KindSemiFinished || k == KindFinished
}

// Consumable reports whether items of this kind may appear as recipe components.
func (k Kind) Consumable() bool {
	return k == KindRawMaterial || k == KindSemiFinished
}

// =============================================================================
// STOCK ITEM
// =============================================================================

type StockItem struct {
	ID     ItemID
	Name   string
	Unit   string // free-form: "pcs", "kg", "m", "m2", "l"
	OnHand decimal.Decimal
	Kind   Kind

	// MinimumThreshold only applies to raw materials.
	MinimumThreshold decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCritical is true for raw materials at or below their minimum threshold.
func (s StockItem) IsCritical() bool {
	return s.Kind == KindRawMaterial && s.OnHand.LessThanOrEqual(s.MinimumThreshold)
}

// =============================================================================
// RECIPE
// =============================================================================

// RecipeLine says that one unit of ProductID consumes QuantityPerUnit of ComponentID.
type RecipeLine struct {
	ProductID       ItemID
	ComponentID     ItemID
	QuantityPerUnit decimal.Decimal
}

// =============================================================================
// MOVEMENTS
// =============================================================================

type MovementReason string

const (
	MoveRestock          MovementReason = "restock"
	MoveProductionInput  MovementReason = "production_input"
	MoveProductionOutput MovementReason = "production_output"
)

// Movement is an append-only stock change. An item with movements is part of
// the stock history and can no longer be removed.
type Movement struct {
	ID     string
	ItemID ItemID
	Delta  decimal.Decimal
	Reason MovementReason
	RunID  string // production run or restock reference
	At     time.Time
}
