package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

var at = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func item(id string, onHand string) inventory.StockItem {
	return inventory.StockItem{
		ID:        inventory.ItemID(id),
		Name:      id,
		Unit:      "pcs",
		Kind:      inventory.KindRawMaterial,
		OnHand:    generic.MustParseDecimal(onHand),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.InsertItem(ctx, item("wood", "10")))

	// GIVEN: a transaction that writes and then fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(ctx context.Context) error {
		wood := item("wood", "2")
		require.NoError(t, m.UpdateItem(ctx, wood))
		require.NoError(t, m.InsertItem(ctx, item("glue", "1")))
		require.NoError(t, m.AppendAudit(ctx, generic.AuditEntry{ID: "a1", Message: "x", Category: generic.AuditSystem}))
		return boom
	})

	// THEN: the error is returned unchanged and nothing stuck
	assert.ErrorIs(t, err, boom)
	got, err := m.GetItem(ctx, "wood")
	require.NoError(t, err)
	assert.True(t, generic.MustParseDecimal("10").Equal(got.OnHand))
	glue, err := m.GetItem(ctx, "glue")
	require.NoError(t, err)
	assert.Nil(t, glue)
	entries, err := m.ListAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	m := New()

	err := m.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, m.InsertItem(ctx, item("wood", "1")))
		// would deadlock if the inner call tried to take the lock again
		return m.WithTx(ctx, func(ctx context.Context) error {
			return m.InsertItem(ctx, item("glue", "1"))
		})
	})
	require.NoError(t, err)

	items, err := m.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStore_ConflictAndNotFound(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.InsertItem(ctx, item("wood", "1")))

	assert.ErrorIs(t, m.InsertItem(ctx, item("wood", "1")), generic.ErrConflict)
	assert.ErrorIs(t, m.UpdateItem(ctx, item("ghost", "1")), generic.ErrNotFound)
	assert.ErrorIs(t, m.DeleteItem(ctx, "ghost"), generic.ErrNotFound)
	assert.ErrorIs(t, m.DeleteCounterparty(ctx, "ghost"), generic.ErrNotFound)
	assert.ErrorIs(t, m.UpdateTransaction(ctx, ledger.Transaction{ID: "ghost"}), generic.ErrNotFound)

	got, err := m.GetProject(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_AuditNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	m := New()
	for i, c := range []generic.AuditCategory{generic.AuditRestock, generic.AuditProduction, generic.AuditRestock, generic.AuditSystem} {
		require.NoError(t, m.AppendAudit(ctx, generic.AuditEntry{
			ID:        string(rune('a' + i)),
			Timestamp: at.Add(time.Duration(i) * time.Minute),
			Category:  c,
		}))
	}

	all, err := m.ListAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID)

	restocks, err := m.ListAudit(ctx, generic.AuditFilter{Categories: []generic.AuditCategory{generic.AuditRestock}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, restocks, 1)
	assert.Equal(t, "c", restocks[0].ID)
}

func TestStore_RecipeReplaceAndClear(t *testing.T) {
	ctx := context.Background()
	m := New()
	lines := []inventory.RecipeLine{
		{ProductID: "table", ComponentID: "wood", QuantityPerUnit: generic.MustParseDecimal("4")},
		{ProductID: "table", ComponentID: "glue", QuantityPerUnit: generic.MustParseDecimal("0.5")},
	}
	require.NoError(t, m.ReplaceRecipe(ctx, "table", lines))

	got, err := m.RecipeLines(ctx, "table")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, inventory.ItemID("wood"), got[0].ComponentID)

	// mutating the returned slice does not leak into the store
	got[0].ComponentID = "changed"
	again, err := m.RecipeLines(ctx, "table")
	require.NoError(t, err)
	assert.Equal(t, inventory.ItemID("wood"), again[0].ComponentID)

	require.NoError(t, m.ReplaceRecipe(ctx, "table", nil))
	all, err := m.ListRecipeLines(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
