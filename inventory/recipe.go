package inventory

import (
	"sort"
)

// =============================================================================
// RECIPE BOOK - Read-only view of every recipe line
// =============================================================================

// RecipeBook indexes recipe lines by product and by component.
// It is rebuilt from the store whenever it is needed.
type RecipeBook struct {
	byProduct   map[ItemID][]RecipeLine
	byComponent map[ItemID][]ItemID
}

func NewRecipeBook(lines []RecipeLine) *RecipeBook {
	b := &RecipeBook{
		byProduct:   make(map[ItemID][]RecipeLine),
		byComponent: make(map[ItemID][]ItemID),
	}
	for _, l := range lines {
		b.byProduct[l.ProductID] = append(b.byProduct[l.ProductID], l)
		if !containsID(b.byComponent[l.ComponentID], l.ProductID) {
			b.byComponent[l.ComponentID] = append(b.byComponent[l.ComponentID], l.ProductID)
		}
	}
	return b
}

// Lines returns the recipe of product in stored order.
func (b *RecipeBook) Lines(product ItemID) []RecipeLine {
	return b.byProduct[product]
}

// ReferencedBy returns the products whose recipe consumes item.
func (b *RecipeBook) ReferencedBy(item ItemID) []ItemID {
	out := append([]ItemID(nil), b.byComponent[item]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Products returns every product that has a recipe, sorted.
func (b *RecipeBook) Products() []ItemID {
	out := make([]ItemID, 0, len(b.byProduct))
	for id := range b.byProduct {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Cycles returns every dependency loop in the book, each closed by repeating
// its first item (A -> B -> A). Saving a recipe does not consult this; a loop
// only means neither good can be produced until one is restocked.
func (b *RecipeBook) Cycles() [][]ItemID {
	visited := make(map[ItemID]bool)
	onStack := make(map[ItemID]bool)
	var cycles [][]ItemID

	var visit func(id ItemID, path []ItemID)
	visit = func(id ItemID, path []ItemID) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, l := range b.byProduct[id] {
			next := l.ComponentID
			if !visited[next] {
				visit(next, path)
				continue
			}
			if onStack[next] {
				for i, p := range path {
					if p == next {
						cycle := append(append([]ItemID(nil), path[i:]...), next)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
		onStack[id] = false
	}

	for _, product := range b.Products() {
		if !visited[product] {
			visit(product, nil)
		}
	}
	return cycles
}

func containsID(ids []ItemID, id ItemID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// =============================================================================
// INGREDIENT RESOLVER
// =============================================================================

var kindOrder = map[Kind]int{
	KindRawMaterial:  0,
	KindSemiFinished: 1,
	KindFinished:     2,
}

// Consumables returns every item that may be used as a recipe component
// (raw materials, then semi-finished goods, each sorted by name).
func Consumables(items []StockItem) []StockItem {
	out := make([]StockItem, 0, len(items))
	for _, it := range items {
		if it.Kind.Consumable() {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return kindOrder[out[i].Kind] < kindOrder[out[j].Kind]
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Index builds an id lookup over items.
func Index(items []StockItem) map[ItemID]StockItem {
	m := make(map[ItemID]StockItem, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}
