// Package memory provides an in-memory implementation of every repository,
// used by tests and by the server when no database path is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store implements inventory.Store and ledger.Store.
type Store struct {
	mu sync.RWMutex
	state
}

type state struct {
	items     map[inventory.ItemID]inventory.StockItem
	recipes   map[inventory.ItemID][]inventory.RecipeLine
	movements []inventory.Movement
	audit     []generic.AuditEntry

	counterparties map[ledger.CounterpartyID]ledger.Counterparty
	projects       map[ledger.ProjectID]ledger.Project
	transactions   map[ledger.TransactionID]ledger.Transaction
}

var (
	_ inventory.Store = (*Store)(nil)
	_ ledger.Store    = (*Store)(nil)
)

func New() *Store {
	return &Store{state: newState()}
}

func newState() state {
	return state{
		items:          make(map[inventory.ItemID]inventory.StockItem),
		recipes:        make(map[inventory.ItemID][]inventory.RecipeLine),
		counterparties: make(map[ledger.CounterpartyID]ledger.Counterparty),
		projects:       make(map[ledger.ProjectID]ledger.Project),
		transactions:   make(map[ledger.TransactionID]ledger.Transaction),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type txKey struct{}

// WithTx executes fn while holding the write lock. Calls made with the
// context passed to fn skip locking. For a memory store, rollback is a
// snapshot taken before fn and restored if fn fails.
func (m *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.inTx(ctx) {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, m)); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == m
}

func (m *Store) read(ctx context.Context) func() {
	if m.inTx(ctx) {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *Store) write(ctx context.Context) func() {
	if m.inTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.recipes {
		c.recipes[k] = append([]inventory.RecipeLine(nil), v...)
	}
	c.movements = append([]inventory.Movement(nil), s.movements...)
	c.audit = append([]generic.AuditEntry(nil), s.audit...)
	for k, v := range s.counterparties {
		c.counterparties[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	return c
}

// =============================================================================
// ITEMS
// =============================================================================

func (m *Store) ListItems(ctx context.Context) ([]inventory.StockItem, error) {
	defer m.read(ctx)()

	out := make([]inventory.StockItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Store) GetItem(ctx context.Context, id inventory.ItemID) (*inventory.StockItem, error) {
	defer m.read(ctx)()

	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *Store) InsertItem(ctx context.Context, item inventory.StockItem) error {
	defer m.write(ctx)()

	if _, ok := m.items[item.ID]; ok {
		return &generic.ConflictError{Entity: "item", ID: string(item.ID)}
	}
	m.items[item.ID] = item
	return nil
}

func (m *Store) UpdateItem(ctx context.Context, item inventory.StockItem) error {
	defer m.write(ctx)()

	if _, ok := m.items[item.ID]; !ok {
		return &generic.NotFoundError{Entity: "item", ID: string(item.ID)}
	}
	m.items[item.ID] = item
	return nil
}

func (m *Store) DeleteItem(ctx context.Context, id inventory.ItemID) error {
	defer m.write(ctx)()

	if _, ok := m.items[id]; !ok {
		return &generic.NotFoundError{Entity: "item", ID: string(id)}
	}
	delete(m.items, id)
	return nil
}

// =============================================================================
// RECIPES
// =============================================================================

func (m *Store) RecipeLines(ctx context.Context, product inventory.ItemID) ([]inventory.RecipeLine, error) {
	defer m.read(ctx)()
	return append([]inventory.RecipeLine(nil), m.recipes[product]...), nil
}

func (m *Store) ListRecipeLines(ctx context.Context) ([]inventory.RecipeLine, error) {
	defer m.read(ctx)()

	products := make([]inventory.ItemID, 0, len(m.recipes))
	for id := range m.recipes {
		products = append(products, id)
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })

	var out []inventory.RecipeLine
	for _, id := range products {
		out = append(out, m.recipes[id]...)
	}
	return out, nil
}

func (m *Store) ReplaceRecipe(ctx context.Context, product inventory.ItemID, lines []inventory.RecipeLine) error {
	defer m.write(ctx)()

	if len(lines) == 0 {
		delete(m.recipes, product)
		return nil
	}
	m.recipes[product] = append([]inventory.RecipeLine(nil), lines...)
	return nil
}

// =============================================================================
// MOVEMENTS AND AUDIT (append-only)
// =============================================================================

func (m *Store) AppendMovements(ctx context.Context, moves []inventory.Movement) error {
	defer m.write(ctx)()
	m.movements = append(m.movements, moves...)
	return nil
}

func (m *Store) CountMovements(ctx context.Context, item inventory.ItemID) (int, error) {
	defer m.read(ctx)()

	n := 0
	for _, mv := range m.movements {
		if mv.ItemID == item {
			n++
		}
	}
	return n, nil
}

func (m *Store) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	defer m.write(ctx)()
	m.audit = append(m.audit, entry)
	return nil
}

// ListAudit returns matching entries newest first.
func (m *Store) ListAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	defer m.read(ctx)()

	var out []generic.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if !filter.Matches(m.audit[i]) {
			continue
		}
		out = append(out, m.audit[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

func (m *Store) ListCounterparties(ctx context.Context) ([]ledger.Counterparty, error) {
	defer m.read(ctx)()

	out := make([]ledger.Counterparty, 0, len(m.counterparties))
	for _, c := range m.counterparties {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Store) GetCounterparty(ctx context.Context, id ledger.CounterpartyID) (*ledger.Counterparty, error) {
	defer m.read(ctx)()

	c, ok := m.counterparties[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Store) InsertCounterparty(ctx context.Context, c ledger.Counterparty) error {
	defer m.write(ctx)()

	if _, ok := m.counterparties[c.ID]; ok {
		return &generic.ConflictError{Entity: "counterparty", ID: string(c.ID)}
	}
	m.counterparties[c.ID] = c
	return nil
}

func (m *Store) UpdateCounterparty(ctx context.Context, c ledger.Counterparty) error {
	defer m.write(ctx)()

	if _, ok := m.counterparties[c.ID]; !ok {
		return &generic.NotFoundError{Entity: "counterparty", ID: string(c.ID)}
	}
	m.counterparties[c.ID] = c
	return nil
}

func (m *Store) DeleteCounterparty(ctx context.Context, id ledger.CounterpartyID) error {
	defer m.write(ctx)()

	if _, ok := m.counterparties[id]; !ok {
		return &generic.NotFoundError{Entity: "counterparty", ID: string(id)}
	}
	delete(m.counterparties, id)
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (m *Store) ListProjects(ctx context.Context) ([]ledger.Project, error) {
	defer m.read(ctx)()

	out := make([]ledger.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Store) GetProject(ctx context.Context, id ledger.ProjectID) (*ledger.Project, error) {
	defer m.read(ctx)()

	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Store) InsertProject(ctx context.Context, p ledger.Project) error {
	defer m.write(ctx)()

	if _, ok := m.projects[p.ID]; ok {
		return &generic.ConflictError{Entity: "project", ID: string(p.ID)}
	}
	m.projects[p.ID] = p
	return nil
}

func (m *Store) UpdateProject(ctx context.Context, p ledger.Project) error {
	defer m.write(ctx)()

	if _, ok := m.projects[p.ID]; !ok {
		return &generic.NotFoundError{Entity: "project", ID: string(p.ID)}
	}
	m.projects[p.ID] = p
	return nil
}

func (m *Store) DeleteProject(ctx context.Context, id ledger.ProjectID) error {
	defer m.write(ctx)()

	if _, ok := m.projects[id]; !ok {
		return &generic.NotFoundError{Entity: "project", ID: string(id)}
	}
	delete(m.projects, id)
	return nil
}

// =============================================================================
// LEDGER TRANSACTIONS
// =============================================================================

// ListTransactions returns matching transactions ordered by creation time.
func (m *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	defer m.read(ctx)()

	var out []ledger.Transaction
	for _, tx := range m.transactions {
		if filter.Matches(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	defer m.read(ctx)()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (m *Store) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	defer m.write(ctx)()

	if _, ok := m.transactions[tx.ID]; ok {
		return &generic.ConflictError{Entity: "transaction", ID: string(tx.ID)}
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	defer m.write(ctx)()

	if _, ok := m.transactions[tx.ID]; !ok {
		return &generic.NotFoundError{Entity: "transaction", ID: string(tx.ID)}
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	defer m.write(ctx)()

	if _, ok := m.transactions[id]; !ok {
		return &generic.NotFoundError{Entity: "transaction", ID: string(id)}
	}
	delete(m.transactions, id)
	return nil
}
