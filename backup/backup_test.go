package backup_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dogaatademir/Opsiron-sub001/backup"
	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
	"github.com/Dogaatademir/Opsiron-sub001/store/memory"
	"github.com/Dogaatademir/Opsiron-sub001/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var clock = generic.FixedClock{At: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

func quietLogger() logrus.FieldLogger {
	logg, _ := test.NewNullLogger()
	return logg
}

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

// seed fills store with a small workshop and a few ledger entries.
func seed(t *testing.T, store backup.Store) {
	t.Helper()
	ctx := context.Background()
	ids := generic.NewSequenceGenerator()
	inv := inventory.NewService(store, clock, ids, quietLogger())
	led := ledger.NewService(store, clock, ids, quietLogger(), 10)

	wood, err := inv.AddItem(ctx, inventory.NewItem{Name: "Wood", Unit: "m", Kind: inventory.KindRawMaterial, OnHand: dec("10"), MinimumThreshold: dec("2")})
	require.NoError(t, err)
	glue, err := inv.AddItem(ctx, inventory.NewItem{Name: "Glue", Unit: "l", Kind: inventory.KindRawMaterial, OnHand: dec("1")})
	require.NoError(t, err)
	table, err := inv.AddItem(ctx, inventory.NewItem{Name: "Table", Unit: "pcs", Kind: inventory.KindFinished})
	require.NoError(t, err)
	_, err = inv.SetRecipe(ctx, table.ID, []inventory.ComponentQuantity{
		{ComponentID: wood.ID, QuantityPerUnit: dec("4")},
		{ComponentID: glue.ID, QuantityPerUnit: dec("0.2")},
	})
	require.NoError(t, err)

	cp, err := led.AddCounterparty(ctx, ledger.Counterparty{Name: "Acme Steel"})
	require.NoError(t, err)
	prj, err := led.AddProject(ctx, ledger.Project{Name: "Harbor Tower"})
	require.NoError(t, err)
	_, err = led.AddTransaction(ctx, ledger.Transaction{Kind: ledger.KindPayable, Amount: dec("500"), Currency: "try", CounterpartyID: cp.ID, ProjectID: prj.ID})
	require.NoError(t, err)
	_, err = led.AddTransaction(ctx, ledger.Transaction{Kind: ledger.KindCheck, Amount: dec("150"), Currency: "TRY", CounterpartyID: cp.ID, Date: generic.DatePtr(2025, 3, 5)})
	require.NoError(t, err)
}

func newBackup(store backup.Store) *backup.Service {
	return backup.NewService(store, clock, generic.NewSequenceGenerator(), quietLogger())
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestExportImport_RoundTrip(t *testing.T) {
	// GIVEN: a populated store
	src := memory.New()
	seed(t, src)
	ctx := context.Background()

	doc, err := newBackup(src).Export(ctx)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, backup.Encode(&buf, doc))

	// WHEN: the encoded document is restored into an empty sqlite store
	dst, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })

	decoded, err := backup.Decode(&buf)
	require.NoError(t, err)
	sum, err := newBackup(dst).Import(ctx, decoded)
	require.NoError(t, err)

	// THEN: every entity is back and the ledger report is unchanged
	assert.Equal(t, backup.Summary{Items: 3, Recipes: 1, Counterparties: 1, Projects: 1, Transactions: 2}, sum)

	items, err := dst.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Glue", items[0].Name)
	assert.True(t, dec("10").Equal(items[2].OnHand), "wood on hand")

	lines, err := dst.ListRecipeLines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, dec("0.2").Equal(lines[1].QuantityPerUnit))

	srcTxs, err := src.ListTransactions(ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	dstTxs, err := dst.ListTransactions(ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	srcCps, _ := src.ListCounterparties(ctx)
	dstCps, _ := dst.ListCounterparties(ctx)

	asOf := generic.Today(clock)
	before := ledger.Aggregate(srcTxs, srcCps, asOf, 10)
	after := ledger.Aggregate(dstTxs, dstCps, asOf, 10)
	assert.True(t, before.NetPosition.Equal(after.NetPosition))
	assert.True(t, after.TotalUnsettledChecks.Equal(dec("150")))
	require.Len(t, after.Upcoming.PayableLike, 1)

	// restore is audited
	audit, err := dst.ListAudit(ctx, generic.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Contains(t, audit[0].Message, "Backup restored")
}

func TestImport_IsUpsert(t *testing.T) {
	// GIVEN: a store restored once
	store := memory.New()
	seed(t, store)
	ctx := context.Background()
	svc := newBackup(store)
	doc, err := svc.Export(ctx)
	require.NoError(t, err)

	// WHEN: the same document, with one edited item, is imported again
	doc.Items[0].Name = "Wood Glue"
	_, err = svc.Import(ctx, doc)
	require.NoError(t, err)

	// THEN: nothing is duplicated
	items, err := store.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	got, err := store.GetItem(ctx, inventory.ItemID(doc.Items[0].ID))
	require.NoError(t, err)
	assert.Equal(t, "Wood Glue", got.Name)
}

// =============================================================================
// REJECTION
// =============================================================================

func TestDecode_RejectsBadShape(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"version":1,"items":[],"extra":true}`,
		"wrong version": `{"version":2}`,
		"bad kind":      `{"version":1,"items":[{"id":"i1","name":"X","unit":"pcs","kind":"gadget","on_hand":"1"}]}`,
		"missing name":  `{"version":1,"counterparties":[{"id":"c1"}]}`,
		"undated check": `{"version":1,"transactions":[{"id":"t1","amount":"5","currency":"TRY","kind":"check","counterparty_id":"c1"}]}`,
		"zero quantity": `{"version":1,"recipes":[{"product_id":"p","component_id":"c","quantity_per_unit":"0"}]}`,
		"not json":      `version: 1`,
		"blank item":    `{"version":1,"items":[{"id":"i1","name":"   ","unit":"pcs","kind":"finished","on_hand":"1"}]}`,
		"blank unit":    `{"version":1,"items":[{"id":"i1","name":"Table","unit":" \t","kind":"finished","on_hand":"1"}]}`,
		"blank party":   `{"version":1,"counterparties":[{"id":"c1","name":"  "}]}`,
		"blank project": `{"version":1,"projects":[{"id":"p1","name":" ","status":"active"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := backup.Decode(strings.NewReader(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, generic.ErrValidation), "got %v", err)
		})
	}
}

func TestImport_DanglingReferenceRollsBack(t *testing.T) {
	// GIVEN: a document whose transaction points at an unknown counterparty
	doc := backup.Document{
		Version: backup.Version,
		Items: []backup.Item{
			{ID: "item-1", Name: "Wood", Unit: "m", Kind: "raw_material", OnHand: dec("3")},
		},
		Transactions: []backup.Transaction{
			{ID: "tx-1", Amount: dec("10"), Currency: "TRY", Kind: "payment", CounterpartyID: "cp-missing"},
		},
	}
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	// WHEN
	_, err = newBackup(store).Import(ctx, doc)

	// THEN: rejected and the item written before the failure is gone
	var ve *generic.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "transactions[0].counterparty_id", ve.Field)

	items, err := store.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestImport_RecipeRulesApply(t *testing.T) {
	doc := backup.Document{
		Version: backup.Version,
		Items: []backup.Item{
			{ID: "wood", Name: "Wood", Unit: "m", Kind: "raw_material"},
			{ID: "table", Name: "Table", Unit: "pcs", Kind: "finished"},
		},
		Recipes: []backup.RecipeLine{
			{ProductID: "wood", ComponentID: "table", QuantityPerUnit: dec("1")},
		},
	}
	store := memory.New()

	_, err := newBackup(store).Import(context.Background(), doc)
	assert.True(t, errors.Is(err, generic.ErrValidation), "got %v", err)

	items, _ := store.ListItems(context.Background())
	assert.Empty(t, items)
}

func TestDecode_BlankNameNamesTheField(t *testing.T) {
	body := `{"version":1,"items":[{"id":"i1","name":"Wood","unit":"m","kind":"raw_material"},{"id":"i2","name":"  ","unit":"m","kind":"raw_material"}]}`

	_, err := backup.Decode(strings.NewReader(body))

	var ve *generic.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "items[1].name", ve.Field)
}

func TestImport_KindChangeBreakingStoredRecipeRollsBack(t *testing.T) {
	cases := map[string]backup.Item{
		// item-1 (Wood) is a component of the Table recipe
		"component becomes finished": {ID: "item-1", Name: "Wood", Unit: "m", Kind: "finished", OnHand: dec("10")},
		// item-3 (Table) owns a recipe
		"product becomes raw material": {ID: "item-3", Name: "Table", Unit: "pcs", Kind: "raw_material"},
	}
	backends := map[string]func(t *testing.T) backup.Store{
		"memory": func(t *testing.T) backup.Store { return memory.New() },
		"sqlite": func(t *testing.T) backup.Store {
			store, err := sqlite.New(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
	for name, item := range cases {
		for backend, open := range backends {
			t.Run(name+"/"+backend, func(t *testing.T) {
				// GIVEN: a workshop whose Table recipe uses Wood and Glue
				ctx := context.Background()
				store := open(t)
				seed(t, store)
				before, err := store.GetItem(ctx, inventory.ItemID(item.ID))
				require.NoError(t, err)
				require.NotNil(t, before)

				// WHEN: a document without recipes re-kinds one of them
				doc := backup.Document{Version: backup.Version, Items: []backup.Item{item}}
				_, err = newBackup(store).Import(ctx, doc)

				// THEN: rejected against the stored recipe and nothing changed
				var ve *generic.ValidationError
				require.True(t, errors.As(err, &ve), "got %v", err)
				assert.Equal(t, "recipes[item-3]", ve.Field)

				after, err := store.GetItem(ctx, inventory.ItemID(item.ID))
				require.NoError(t, err)
				require.NotNil(t, after)
				assert.Equal(t, before.Kind, after.Kind)

				lines, err := store.ListRecipeLines(ctx)
				require.NoError(t, err)
				assert.Len(t, lines, 2)
			})
		}
	}
}

func TestImport_KindChangeWithoutRecipesIsAllowed(t *testing.T) {
	// GIVEN: the seeded workshop; Glue is only used by the Table recipe
	store := memory.New()
	ctx := context.Background()
	seed(t, store)

	// WHEN: Glue becomes a semi-finished good, still consumable
	doc := backup.Document{Version: backup.Version, Items: []backup.Item{
		{ID: "item-2", Name: "Glue", Unit: "l", Kind: "semi_finished", OnHand: dec("1")},
	}}
	sum, err := newBackup(store).Import(ctx, doc)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Items)
	glue, err := store.GetItem(ctx, "item-2")
	require.NoError(t, err)
	assert.Equal(t, inventory.KindSemiFinished, glue.Kind)
}
