/*
engine.go - Bill-of-materials feasibility and planning

PURPOSE:
  Pure functions that decide whether a production run can be covered by
  current stock and, if so, which stock deltas apply it. They never touch a
  store; Service.Produce feeds them a lookup and writes the plan.

ALGORITHM:
  For every recipe line of the target:
      required = QuantityPerUnit x quantity
  A component that is missing from the lookup, or whose OnHand is below
  required, is a shortage. Any shortage rejects the whole run.

SHORTAGE REPORTING:
  Every shortage is collected in recipe order. The error message and
  InsufficientStockError.Item() name the first one, so callers that only
  care about "which item stopped me" read the same thing as before.

EXAMPLE:
  stock:  Wood 10, Glue 2
  Table:  Wood x4, Glue x0.5
  Plan(Table, 2)  -> Wood -8, Glue -1, Table +2
  Plan(Table, 3)  -> InsufficientStockError("Wood": need 12, have 10)
*/
package inventory

import (
	"fmt"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/shopspring/decimal"
)

// StockLookup returns the current state of an item.
type StockLookup func(id ItemID) (StockItem, bool)

// LookupFrom adapts a slice of items to a StockLookup.
func LookupFrom(items []StockItem) StockLookup {
	idx := Index(items)
	return func(id ItemID) (StockItem, bool) {
		it, ok := idx[id]
		return it, ok
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// Shortage describes one component that cannot cover a run.
type Shortage struct {
	ItemID    ItemID
	ItemName  string // empty when the component no longer exists
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (s Shortage) Missing() bool { return s.ItemName == "" }

func (s Shortage) Shortfall() decimal.Decimal {
	return s.Required.Sub(s.Available)
}

func (s Shortage) label() string {
	if s.Missing() {
		return string(s.ItemID)
	}
	return s.ItemName
}

// InsufficientStockError rejects a production run.
type InsufficientStockError struct {
	ProductID ItemID
	Quantity  decimal.Decimal
	Shortages []Shortage
}

// Item names the first shortage in recipe order.
func (e *InsufficientStockError) Item() string {
	if len(e.Shortages) == 0 {
		return ""
	}
	return e.Shortages[0].label()
}

func (e *InsufficientStockError) Error() string {
	first := e.Shortages[0]
	if first.Missing() {
		return fmt.Sprintf("insufficient stock: component %s does not exist", first.ItemID)
	}
	msg := fmt.Sprintf("insufficient stock: %s requires %s, available %s",
		first.ItemName, first.Required, first.Available)
	if n := len(e.Shortages) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func (e *InsufficientStockError) Unwrap() error { return generic.ErrInsufficientStock }

// =============================================================================
// PLAN
// =============================================================================

// Delta is one stock change of a plan.
type Delta struct {
	Item   StockItem // state before the run
	Change decimal.Decimal
	Reason MovementReason
}

// After returns the OnHand the item will have once the delta is applied.
func (d Delta) After() decimal.Decimal {
	return d.Item.OnHand.Add(d.Change)
}

// Plan is a feasible production run: component consumptions in recipe order
// followed by the output.
type Plan struct {
	Target   StockItem
	Quantity decimal.Decimal
	Deltas   []Delta
}

// ValidateRun checks the request itself, independent of stock.
func ValidateRun(target StockItem, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return generic.Invalid("quantity", "must be greater than zero")
	}
	if !target.Kind.Producible() {
		return generic.Invalid("product_id", "%s is a %s and has no recipe", target.Name, target.Kind)
	}
	return nil
}

// CheckFeasibility reports whether stock covers quantity units of target.
// It has no side effects.
func CheckFeasibility(target StockItem, lines []RecipeLine, quantity decimal.Decimal, lookup StockLookup) error {
	_, err := shortages(target, lines, quantity, lookup)
	return err
}

// BuildPlan checks feasibility and returns the deltas that apply the run.
func BuildPlan(target StockItem, lines []RecipeLine, quantity decimal.Decimal, lookup StockLookup) (Plan, error) {
	deltas, err := shortages(target, lines, quantity, lookup)
	if err != nil {
		return Plan{}, err
	}
	deltas = append(deltas, Delta{Item: target, Change: quantity, Reason: MoveProductionOutput})
	return Plan{Target: target, Quantity: quantity, Deltas: deltas}, nil
}

func shortages(target StockItem, lines []RecipeLine, quantity decimal.Decimal, lookup StockLookup) ([]Delta, error) {
	if err := ValidateRun(target, quantity); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, generic.Invalid("product_id", "%s has no recipe", target.Name)
	}

	// Lines naming the same component are summed so the check sees the
	// total draw on that item.
	required := make(map[ItemID]decimal.Decimal, len(lines))
	var order []ItemID
	for _, l := range lines {
		if _, seen := required[l.ComponentID]; !seen {
			order = append(order, l.ComponentID)
		}
		required[l.ComponentID] = required[l.ComponentID].Add(l.QuantityPerUnit.Mul(quantity))
	}

	var (
		missing []Shortage
		deltas  []Delta
	)
	for _, id := range order {
		need := required[id]
		item, ok := lookup(id)
		if !ok {
			missing = append(missing, Shortage{ItemID: id, Required: need, Available: decimal.Zero})
			continue
		}
		if item.OnHand.LessThan(need) {
			missing = append(missing, Shortage{ItemID: id, ItemName: item.Name, Required: need, Available: item.OnHand})
			continue
		}
		deltas = append(deltas, Delta{Item: item, Change: need.Neg(), Reason: MoveProductionInput})
	}

	if len(missing) > 0 {
		return nil, &InsufficientStockError{ProductID: target.ID, Quantity: quantity, Shortages: missing}
	}
	return deltas, nil
}
