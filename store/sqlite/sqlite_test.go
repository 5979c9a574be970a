package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

var at = time.Date(2025, 1, 15, 9, 0, 0, 123456789, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func item(id, onHand string) inventory.StockItem {
	return inventory.StockItem{
		ID:               inventory.ItemID(id),
		Name:             id,
		Unit:             "kg",
		Kind:             inventory.KindRawMaterial,
		OnHand:           generic.MustParseDecimal(onHand),
		MinimumThreshold: generic.MustParseDecimal("0.25"),
		CreatedAt:        at,
		UpdatedAt:        at,
	}
}

func TestStore_ItemRoundTripKeepsPrecision(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.InsertItem(ctx, item("steel", "12.3456789012")))

	got, err := s.GetItem(ctx, "steel")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "12.3456789012", got.OnHand.String())
	assert.True(t, generic.MustParseDecimal("0.25").Equal(got.MinimumThreshold))
	assert.True(t, at.Equal(got.CreatedAt), "nanoseconds survive")

	missing, err := s.GetItem(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.InsertItem(ctx, item("wood", "1")))

	assert.ErrorIs(t, s.InsertItem(ctx, item("wood", "1")), generic.ErrConflict)
	assert.ErrorIs(t, s.UpdateItem(ctx, item("ghost", "1")), generic.ErrNotFound)
	assert.ErrorIs(t, s.DeleteProject(ctx, "ghost"), generic.ErrNotFound)

	// a recipe line pointing at a missing component violates the foreign key
	err := s.ReplaceRecipe(ctx, "wood", []inventory.RecipeLine{
		{ProductID: "wood", ComponentID: "ghost", QuantityPerUnit: generic.MustParseDecimal("1")},
	})
	assert.ErrorIs(t, err, generic.ErrReferentialIntegrity)

	// and so does deleting an item that still has movements
	require.NoError(t, s.AppendMovements(ctx, []inventory.Movement{
		{ID: "m1", ItemID: "wood", Delta: generic.MustParseDecimal("1"), Reason: inventory.MoveRestock, RunID: "r1", At: at},
	}))
	assert.ErrorIs(t, s.DeleteItem(ctx, "wood"), generic.ErrReferentialIntegrity)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.InsertItem(ctx, item("wood", "10")))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.UpdateItem(ctx, item("wood", "2")))
		require.NoError(t, s.InsertItem(ctx, item("glue", "1")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	wood, err := s.GetItem(ctx, "wood")
	require.NoError(t, err)
	assert.True(t, generic.MustParseDecimal("10").Equal(wood.OnHand))
	glue, err := s.GetItem(ctx, "glue")
	require.NoError(t, err)
	assert.Nil(t, glue)
}

func TestStore_RecipeOrderAndReplace(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, id := range []string{"table", "wood", "glue", "screw"} {
		require.NoError(t, s.InsertItem(ctx, item(id, "1")))
	}
	q := generic.MustParseDecimal
	require.NoError(t, s.ReplaceRecipe(ctx, "table", []inventory.RecipeLine{
		{ProductID: "table", ComponentID: "wood", QuantityPerUnit: q("4")},
		{ProductID: "table", ComponentID: "glue", QuantityPerUnit: q("0.5")},
	}))
	require.NoError(t, s.ReplaceRecipe(ctx, "table", []inventory.RecipeLine{
		{ProductID: "table", ComponentID: "screw", QuantityPerUnit: q("8")},
		{ProductID: "table", ComponentID: "wood", QuantityPerUnit: q("3")},
	}))

	lines, err := s.RecipeLines(ctx, "table")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, inventory.ItemID("screw"), lines[0].ComponentID)
	assert.Equal(t, inventory.ItemID("wood"), lines[1].ComponentID)
	assert.True(t, q("3").Equal(lines[1].QuantityPerUnit))
}

func TestStore_AuditOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	cats := []generic.AuditCategory{generic.AuditRestock, generic.AuditProduction, generic.AuditRestock}
	for i, c := range cats {
		require.NoError(t, s.AppendAudit(ctx, generic.AuditEntry{
			ID:        string(rune('a' + i)),
			Timestamp: at,
			Message:   "entry",
			Category:  c,
		}))
	}

	all, err := s.ListAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	restocks, err := s.ListAudit(ctx, generic.AuditFilter{Categories: []generic.AuditCategory{generic.AuditRestock}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, restocks, 1)
	assert.Equal(t, "c", restocks[0].ID)
}

func TestStore_TransactionNullableColumns(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.InsertCounterparty(ctx, ledger.Counterparty{ID: "cp", Name: "Acme", CreatedAt: at}))

	undated := ledger.Transaction{
		ID: "t1", Kind: ledger.KindPayable, Amount: generic.MustParseDecimal("100"),
		RawAmount: generic.MustParseDecimal("100"), Currency: "TRY", CounterpartyID: "cp", CreatedAt: at,
	}
	require.NoError(t, s.InsertTransaction(ctx, undated))

	got, err := s.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Date)
	assert.Equal(t, ledger.ProjectID(""), got.ProjectID)

	// an unknown project is a foreign key violation
	withProject := undated
	withProject.ID = "t2"
	withProject.ProjectID = "ghost"
	assert.ErrorIs(t, s.InsertTransaction(ctx, withProject), generic.ErrReferentialIntegrity)

	// a check without a date is refused by the schema
	check := undated
	check.ID = "t3"
	check.Kind = ledger.KindCheck
	assert.Error(t, s.InsertTransaction(ctx, check))
}

func TestNew_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "opsiron.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.InsertProject(ctx, ledger.Project{ID: "p1", Name: "Tower", Status: ledger.ProjectActive, CreatedAt: at}))
	require.NoError(t, s.Close())

	// migrations are idempotent and the row is still there
	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	p, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Tower", p.Name)
}
