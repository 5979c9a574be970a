package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service applies inventory operations against a Store. Every mutating call
// runs inside one store transaction and appends exactly one audit entry.
type Service struct {
	store Store
	clock generic.Clock
	ids   generic.IDGenerator
	log   logrus.FieldLogger
}

func NewService(store Store, clock generic.Clock, ids generic.IDGenerator, log logrus.FieldLogger) *Service {
	return &Service{
		store: store,
		clock: clock,
		ids:   ids,
		log:   log.WithField("module", "inventory"),
	}
}

// NewItem is the input of AddItem.
type NewItem struct {
	Name             string
	Unit             string
	Kind             Kind
	OnHand           decimal.Decimal
	MinimumThreshold decimal.Decimal
}

// ItemUpdate is the input of UpdateItem. Stock level and kind are not editable.
type ItemUpdate struct {
	Name             string
	Unit             string
	MinimumThreshold decimal.Decimal
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) Items(ctx context.Context) ([]StockItem, error) {
	return s.store.ListItems(ctx)
}

func (s *Service) Item(ctx context.Context, id ItemID) (StockItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return StockItem{}, err
	}
	if item == nil {
		return StockItem{}, &generic.NotFoundError{Entity: "item", ID: string(id)}
	}
	return *item, nil
}

// Ingredients lists everything a recipe may consume.
func (s *Service) Ingredients(ctx context.Context) ([]StockItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return Consumables(items), nil
}

// CriticalItems lists raw materials at or below their threshold.
func (s *Service) CriticalItems(ctx context.Context) ([]StockItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	var out []StockItem
	for _, it := range items {
		if it.IsCritical() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Service) Recipe(ctx context.Context, product ItemID) ([]RecipeLine, error) {
	if _, err := s.Item(ctx, product); err != nil {
		return nil, err
	}
	return s.store.RecipeLines(ctx, product)
}

func (s *Service) RecipeBook(ctx context.Context) (*RecipeBook, error) {
	lines, err := s.store.ListRecipeLines(ctx)
	if err != nil {
		return nil, err
	}
	return NewRecipeBook(lines), nil
}

func (s *Service) AuditLog(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	return s.store.ListAudit(ctx, filter)
}

// =============================================================================
// ITEM LIFECYCLE
// =============================================================================

func (s *Service) AddItem(ctx context.Context, in NewItem) (StockItem, error) {
	if err := validateItemFields(in.Name, in.Unit, in.MinimumThreshold); err != nil {
		return StockItem{}, err
	}
	if !in.Kind.Valid() {
		return StockItem{}, generic.Invalid("kind", "unknown kind %q", in.Kind)
	}
	if in.OnHand.IsNegative() {
		return StockItem{}, generic.Invalid("on_hand", "must not be negative")
	}

	now := s.clock.Now()
	item := StockItem{
		ID:        ItemID(s.ids.NewID("item")),
		Name:      strings.TrimSpace(in.Name),
		Unit:      strings.TrimSpace(in.Unit),
		OnHand:    in.OnHand,
		Kind:      in.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Kind == KindRawMaterial {
		item.MinimumThreshold = in.MinimumThreshold
	}

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.InsertItem(ctx, item); err != nil {
			return err
		}
		return s.audit(ctx, generic.AuditSystem, fmt.Sprintf("Added %s %q (%s %s)", item.Kind, item.Name, item.OnHand, item.Unit))
	})
	if err != nil {
		return StockItem{}, err
	}

	s.log.WithFields(logrus.Fields{"item_id": item.ID, "kind": item.Kind}).Info("item added")
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, id ItemID, in ItemUpdate) (StockItem, error) {
	if err := validateItemFields(in.Name, in.Unit, in.MinimumThreshold); err != nil {
		return StockItem{}, err
	}

	var updated StockItem
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		item, err := s.Item(ctx, id)
		if err != nil {
			return err
		}
		item.Name = strings.TrimSpace(in.Name)
		item.Unit = strings.TrimSpace(in.Unit)
		if item.Kind == KindRawMaterial {
			item.MinimumThreshold = in.MinimumThreshold
		}
		item.UpdatedAt = s.clock.Now()
		if err := s.store.UpdateItem(ctx, item); err != nil {
			return err
		}
		updated = item
		return s.audit(ctx, generic.AuditSystem, fmt.Sprintf("Updated %q", item.Name))
	})
	return updated, err
}

// RemoveItem deletes an item and its own recipe. It is refused while another
// recipe consumes the item or while the item has stock movements.
func (s *Service) RemoveItem(ctx context.Context, id ItemID) error {
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		item, err := s.Item(ctx, id)
		if err != nil {
			return err
		}

		lines, err := s.store.ListRecipeLines(ctx)
		if err != nil {
			return err
		}
		var dependents []string
		for _, p := range NewRecipeBook(lines).ReferencedBy(id) {
			if p != id {
				dependents = append(dependents, "recipe of "+string(p))
			}
		}
		moves, err := s.store.CountMovements(ctx, id)
		if err != nil {
			return err
		}
		if moves > 0 {
			dependents = append(dependents, fmt.Sprintf("%d stock movements", moves))
		}
		if len(dependents) > 0 {
			return &generic.ReferentialIntegrityError{Entity: "item", ID: string(id), Dependents: dependents}
		}

		if err := s.store.ReplaceRecipe(ctx, id, nil); err != nil {
			return err
		}
		if err := s.store.DeleteItem(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, generic.AuditSystem, fmt.Sprintf("Removed %q", item.Name))
	})
	if err != nil {
		return err
	}
	s.log.WithField("item_id", id).Info("item removed")
	return nil
}

// =============================================================================
// RECIPES
// =============================================================================

// ComponentQuantity is one line of a recipe being authored.
type ComponentQuantity struct {
	ComponentID     ItemID
	QuantityPerUnit decimal.Decimal
}

// SetRecipe replaces the recipe of a producible item.
func (s *Service) SetRecipe(ctx context.Context, product ItemID, components []ComponentQuantity) ([]RecipeLine, error) {
	var lines []RecipeLine
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		target, err := s.Item(ctx, product)
		if err != nil {
			return err
		}
		if !target.Kind.Producible() {
			return generic.Invalid("product_id", "%s is a %s and cannot have a recipe", target.Name, target.Kind)
		}

		seen := make(map[ItemID]bool, len(components))
		lines = make([]RecipeLine, 0, len(components))
		for i, c := range components {
			field := fmt.Sprintf("components[%d]", i)
			if c.ComponentID == product {
				return generic.Invalid(field, "a recipe cannot consume its own product")
			}
			if seen[c.ComponentID] {
				return generic.Invalid(field, "component %s listed twice", c.ComponentID)
			}
			seen[c.ComponentID] = true
			if !c.QuantityPerUnit.IsPositive() {
				return generic.Invalid(field, "quantity per unit must be greater than zero")
			}
			comp, err := s.store.GetItem(ctx, c.ComponentID)
			if err != nil {
				return err
			}
			if comp == nil {
				return generic.Invalid(field, "component %s does not exist", c.ComponentID)
			}
			if !comp.Kind.Consumable() {
				return generic.Invalid(field, "%s is a finished good and cannot be consumed", comp.Name)
			}
			lines = append(lines, RecipeLine{ProductID: product, ComponentID: c.ComponentID, QuantityPerUnit: c.QuantityPerUnit})
		}

		if err := s.store.ReplaceRecipe(ctx, product, lines); err != nil {
			return err
		}
		return s.audit(ctx, generic.AuditSystem, fmt.Sprintf("Recipe of %q set to %d components", target.Name, len(lines)))
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// =============================================================================
// STOCK MUTATIONS
// =============================================================================

func (s *Service) Restock(ctx context.Context, id ItemID, quantity decimal.Decimal) (StockItem, error) {
	if !quantity.IsPositive() {
		return StockItem{}, generic.Invalid("quantity", "must be greater than zero")
	}

	var item StockItem
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.Item(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		item.OnHand = item.OnHand.Add(quantity)
		item.UpdatedAt = now
		if err := s.store.UpdateItem(ctx, item); err != nil {
			return err
		}
		move := Movement{
			ID:     s.ids.NewID("move"),
			ItemID: id,
			Delta:  quantity,
			Reason: MoveRestock,
			RunID:  s.ids.NewID("restock"),
			At:     now,
		}
		if err := s.store.AppendMovements(ctx, []Movement{move}); err != nil {
			return err
		}
		return s.audit(ctx, generic.AuditRestock, fmt.Sprintf("Restocked %s %s of %q", quantity, item.Unit, item.Name))
	})
	if err != nil {
		return StockItem{}, err
	}

	s.log.WithFields(logrus.Fields{"item_id": id, "quantity": quantity.String()}).Info("restocked")
	return item, nil
}

// CheckFeasibility reports whether quantity units of product can be produced
// from current stock. It does not modify anything.
func (s *Service) CheckFeasibility(ctx context.Context, product ItemID, quantity decimal.Decimal) error {
	target, lines, lookup, err := s.loadRun(ctx, product)
	if err != nil {
		return err
	}
	return CheckFeasibility(target, lines, quantity, lookup)
}

// ProductionResult reports an applied run.
type ProductionResult struct {
	RunID    string
	Product  StockItem // state after the run
	Quantity decimal.Decimal
	Consumed []Delta
}

// Produce applies a production run: every component is decremented, the
// product is incremented and one production audit entry is appended. Either
// all of it is committed or nothing is.
func (s *Service) Produce(ctx context.Context, product ItemID, quantity decimal.Decimal) (ProductionResult, error) {
	var result ProductionResult
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		target, lines, lookup, err := s.loadRun(ctx, product)
		if err != nil {
			return err
		}
		plan, err := BuildPlan(target, lines, quantity, lookup)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		runID := s.ids.NewID("run")

		// Deltas are folded per item so an item touched twice is written once.
		after := make(map[ItemID]StockItem)
		var order []ItemID
		moves := make([]Movement, 0, len(plan.Deltas))
		for _, d := range plan.Deltas {
			cur, ok := after[d.Item.ID]
			if !ok {
				cur = d.Item
				order = append(order, d.Item.ID)
			}
			cur.OnHand = cur.OnHand.Add(d.Change)
			cur.UpdatedAt = now
			after[d.Item.ID] = cur
			moves = append(moves, Movement{
				ID:     s.ids.NewID("move"),
				ItemID: d.Item.ID,
				Delta:  d.Change,
				Reason: d.Reason,
				RunID:  runID,
				At:     now,
			})
		}
		for _, id := range order {
			if err := s.store.UpdateItem(ctx, after[id]); err != nil {
				return err
			}
		}
		if err := s.store.AppendMovements(ctx, moves); err != nil {
			return err
		}
		if err := s.audit(ctx, generic.AuditProduction, fmt.Sprintf("Produced %s %s of %q", quantity, target.Unit, target.Name)); err != nil {
			return err
		}

		result = ProductionResult{
			RunID:    runID,
			Product:  after[target.ID],
			Quantity: quantity,
			Consumed: plan.Deltas[:len(plan.Deltas)-1],
		}
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"product_id": product, "quantity": quantity.String()}).WithError(err).Warn("production rejected")
		return ProductionResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"product_id": product,
		"quantity":   quantity.String(),
		"run_id":     result.RunID,
	}).Info("production applied")
	return result, nil
}

func (s *Service) loadRun(ctx context.Context, product ItemID) (StockItem, []RecipeLine, StockLookup, error) {
	target, err := s.Item(ctx, product)
	if err != nil {
		return StockItem{}, nil, nil, err
	}
	lines, err := s.store.RecipeLines(ctx, product)
	if err != nil {
		return StockItem{}, nil, nil, err
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return StockItem{}, nil, nil, err
	}
	return target, lines, LookupFrom(items), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) audit(ctx context.Context, category generic.AuditCategory, message string) error {
	return s.store.AppendAudit(ctx, generic.AuditEntry{
		ID:        s.ids.NewID("audit"),
		Timestamp: s.clock.Now(),
		Message:   message,
		Category:  category,
	})
}

func validateItemFields(name, unit string, threshold decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return generic.Invalid("name", "is required")
	}
	if strings.TrimSpace(unit) == "" {
		return generic.Invalid("unit", "is required")
	}
	if threshold.IsNegative() {
		return generic.Invalid("minimum_threshold", "must not be negative")
	}
	return nil
}
