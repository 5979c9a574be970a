package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
	"github.com/Dogaatademir/Opsiron-sub001/store/memory"
	"github.com/Dogaatademir/Opsiron-sub001/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// 2025-03-01 10:00 UTC; the upcoming window runs to 2025-03-11.
var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

func stores(t *testing.T) map[string]ledger.Store {
	sq, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]ledger.Store{"memory": memory.New(), "sqlite": sq}
}

type fixture struct {
	svc    *ledger.Service
	acme   ledger.Counterparty
	client ledger.Counterparty
	tower  ledger.Project
}

func newFixture(t *testing.T, store ledger.Store) fixture {
	t.Helper()
	ctx := context.Background()
	logg, _ := test.NewNullLogger()
	svc := ledger.NewService(store, generic.FixedClock{At: now}, generic.NewSequenceGenerator(), logg, 10)

	acme, err := svc.AddCounterparty(ctx, ledger.Counterparty{Name: "Acme Steel"})
	require.NoError(t, err)
	client, err := svc.AddCounterparty(ctx, ledger.Counterparty{Name: "  Harbor Homes "})
	require.NoError(t, err)
	tower, err := svc.AddProject(ctx, ledger.Project{Name: "Tower Block"})
	require.NoError(t, err)
	return fixture{svc: svc, acme: acme, client: client, tower: tower}
}

func (f fixture) record(t *testing.T, tx ledger.Transaction) ledger.Transaction {
	t.Helper()
	if tx.Currency == "" {
		tx.Currency = "TRY"
	}
	out, err := f.svc.AddTransaction(context.Background(), tx)
	require.NoError(t, err)
	return out
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var ve *generic.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	return ve.Field
}

// =============================================================================
// COUNTERPARTIES AND PROJECTS
// =============================================================================

func TestService_AddCounterpartyTrimsName(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			assert.Equal(t, "Harbor Homes", f.client.Name)
			assert.True(t, now.Equal(f.client.CreatedAt))

			_, err := f.svc.AddCounterparty(context.Background(), ledger.Counterparty{Name: "   "})
			assert.Equal(t, "name", fieldOf(t, err))
		})
	}
}

func TestService_AddProjectDefaultsToActive(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			assert.Equal(t, ledger.ProjectActive, f.tower.Status)

			_, err := f.svc.AddProject(context.Background(), ledger.Project{Name: "Villa", Status: "paused"})
			assert.Equal(t, "status", fieldOf(t, err))
		})
	}
}

func TestService_UpdateProjectKeepsCreatedAt(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)

			updated, err := f.svc.UpdateProject(ctx, ledger.Project{ID: f.tower.ID, Name: "Tower Block B", Status: ledger.ProjectCompleted})
			require.NoError(t, err)
			assert.True(t, now.Equal(updated.CreatedAt))

			got, err := f.svc.Project(ctx, f.tower.ID)
			require.NoError(t, err)
			assert.Equal(t, "Tower Block B", got.Name)
			assert.Equal(t, ledger.ProjectCompleted, got.Status)

			_, err = f.svc.UpdateProject(ctx, ledger.Project{ID: "missing", Name: "x"})
			assert.ErrorIs(t, err, generic.ErrNotFound)
		})
	}
}

func TestService_DeleteGuardedByTransactions(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)
			tx := f.record(t, ledger.Transaction{Kind: ledger.KindPayable, Amount: dec("100"), CounterpartyID: f.acme.ID, ProjectID: f.tower.ID})

			// WHEN: deleting referenced entities
			err := f.svc.DeleteCounterparty(ctx, f.acme.ID)
			assert.ErrorIs(t, err, generic.ErrReferentialIntegrity)
			err = f.svc.DeleteProject(ctx, f.tower.ID)
			assert.ErrorIs(t, err, generic.ErrReferentialIntegrity)

			// THEN: once the transaction is gone both can be deleted
			require.NoError(t, f.svc.DeleteTransaction(ctx, tx.ID))
			require.NoError(t, f.svc.DeleteCounterparty(ctx, f.acme.ID))
			require.NoError(t, f.svc.DeleteProject(ctx, f.tower.ID))

			_, err = f.svc.Counterparty(ctx, f.acme.ID)
			assert.ErrorIs(t, err, generic.ErrNotFound)
			assert.ErrorIs(t, f.svc.DeleteProject(ctx, f.tower.ID), generic.ErrNotFound)
		})
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestService_AddTransactionValidation(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			cases := []struct {
				name  string
				tx    ledger.Transaction
				field string
			}{
				{"unknown kind", ledger.Transaction{Kind: "loan", Amount: dec("1"), Currency: "TRY", CounterpartyID: f.acme.ID}, "kind"},
				{"zero amount", ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("0"), Currency: "TRY", CounterpartyID: f.acme.ID}, "amount"},
				{"negative amount", ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("-5"), Currency: "TRY", CounterpartyID: f.acme.ID}, "amount"},
				{"no currency", ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("1"), CounterpartyID: f.acme.ID}, "currency"},
				{"undated check", ledger.Transaction{Kind: ledger.KindCheck, Amount: dec("1"), Currency: "TRY", CounterpartyID: f.acme.ID}, "date"},
				{"no counterparty", ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("1"), Currency: "TRY"}, "counterparty_id"},
				{"unknown counterparty", ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("1"), Currency: "TRY", CounterpartyID: "ghost"}, "counterparty_id"},
				{"unknown project", ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("1"), Currency: "TRY", CounterpartyID: f.acme.ID, ProjectID: "ghost"}, "project_id"},
			}
			for _, tc := range cases {
				_, err := f.svc.AddTransaction(context.Background(), tc.tx)
				assert.Equal(t, tc.field, fieldOf(t, err), tc.name)
			}

			txs, err := f.svc.Transactions(context.Background(), ledger.TransactionFilter{})
			require.NoError(t, err)
			assert.Empty(t, txs)
		})
	}
}

func TestService_AddTransactionNormalizes(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)

			// GIVEN: a payment entered in lower-case currency with no raw amount
			tx := f.record(t, ledger.Transaction{
				Kind:           ledger.KindPayment,
				Amount:         dec("1250.75"),
				Currency:       " usd ",
				CounterpartyID: f.acme.ID,
				Settled:        true,
			})

			// THEN
			got, err := f.svc.Transaction(ctx, tx.ID)
			require.NoError(t, err)
			assert.Equal(t, "USD", got.Currency)
			assert.True(t, dec("1250.75").Equal(got.RawAmount))
			assert.False(t, got.Settled, "payments carry no settlement state")
			assert.Nil(t, got.Date)
		})
	}
}

func TestService_TransactionFilters(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)
			f.record(t, ledger.Transaction{Kind: ledger.KindPayable, Amount: dec("10"), CounterpartyID: f.acme.ID, ProjectID: f.tower.ID})
			f.record(t, ledger.Transaction{Kind: ledger.KindReceivable, Amount: dec("20"), CounterpartyID: f.client.ID, ProjectID: f.tower.ID})
			f.record(t, ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("5"), CounterpartyID: f.acme.ID})

			byCp, err := f.svc.Transactions(ctx, ledger.TransactionFilter{CounterpartyID: f.acme.ID})
			require.NoError(t, err)
			assert.Len(t, byCp, 2)

			byProject, err := f.svc.Transactions(ctx, ledger.TransactionFilter{ProjectID: f.tower.ID})
			require.NoError(t, err)
			assert.Len(t, byProject, 2)

			both, err := f.svc.Transactions(ctx, ledger.TransactionFilter{CounterpartyID: f.client.ID, ProjectID: f.tower.ID})
			require.NoError(t, err)
			require.Len(t, both, 1)
			assert.Equal(t, ledger.KindReceivable, both[0].Kind)
		})
	}
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestService_SetSettled(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)
			check := f.record(t, ledger.Transaction{
				Kind:           ledger.KindCheck,
				Amount:         dec("200"),
				Date:           generic.DatePtr(2025, time.March, 4),
				CounterpartyID: f.acme.ID,
			})
			assert.False(t, check.Settled)

			// WHEN: settled
			got, err := f.svc.SetSettled(ctx, check.ID, true)
			require.NoError(t, err)
			assert.True(t, got.Settled)

			// THEN: settling again is refused
			_, err = f.svc.SetSettled(ctx, check.ID, true)
			assert.Equal(t, "settled", fieldOf(t, err))

			// AND: it can be reverted to pending
			got, err = f.svc.SetSettled(ctx, check.ID, false)
			require.NoError(t, err)
			assert.False(t, got.Settled)

			stored, err := f.svc.Transaction(ctx, check.ID)
			require.NoError(t, err)
			assert.False(t, stored.Settled)
		})
	}
}

func TestService_SetSettledRejectsCashKinds(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)
			payment := f.record(t, ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("1"), CounterpartyID: f.acme.ID})

			_, err := f.svc.SetSettled(ctx, payment.ID, true)
			assert.Equal(t, "kind", fieldOf(t, err))

			_, err = f.svc.SetSettled(ctx, "missing", true)
			assert.ErrorIs(t, err, generic.ErrNotFound)
		})
	}
}

// =============================================================================
// REPORTS
// =============================================================================

func TestService_UpdateTransactionKeepsSettlement(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)

			// GIVEN: one settled check and one pending check
			settledCheck := f.record(t, ledger.Transaction{Kind: ledger.KindCheck, Amount: dec("200"), Date: generic.DatePtr(2025, time.March, 4), CounterpartyID: f.acme.ID})
			pendingCheck := f.record(t, ledger.Transaction{Kind: ledger.KindCheck, Amount: dec("75"), Date: generic.DatePtr(2025, time.March, 6), CounterpartyID: f.acme.ID})
			_, err := f.svc.SetSettled(ctx, settledCheck.ID, true)
			require.NoError(t, err)

			// WHEN: edits carry the opposite settlement state
			edit := settledCheck
			edit.Settled = false
			edit.Description = "renumbered"
			updated, err := f.svc.UpdateTransaction(ctx, edit)
			require.NoError(t, err)

			edit = pendingCheck
			edit.Settled = true
			_, err = f.svc.UpdateTransaction(ctx, edit)
			require.NoError(t, err)

			// THEN: the edits land but settlement is unchanged
			assert.True(t, updated.Settled)
			got, err := f.svc.Transaction(ctx, settledCheck.ID)
			require.NoError(t, err)
			assert.Equal(t, "renumbered", got.Description)
			assert.True(t, got.Settled)

			got, err = f.svc.Transaction(ctx, pendingCheck.ID)
			require.NoError(t, err)
			assert.False(t, got.Settled)

			report, err := f.svc.Report(ctx, 0)
			require.NoError(t, err)
			assert.True(t, dec("75").Equal(report.TotalUnsettledChecks))
			assert.True(t, dec("200").Equal(report.TotalPaid))
		})
	}
}

func TestService_ReportFollowsSettlement(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)
			f.record(t, ledger.Transaction{Kind: ledger.KindPayable, Amount: dec("500"), CounterpartyID: f.acme.ID, ProjectID: f.tower.ID})
			check := f.record(t, ledger.Transaction{
				Kind:           ledger.KindCheck,
				Amount:         dec("200"),
				Date:           generic.DatePtr(2025, time.March, 4),
				CounterpartyID: f.acme.ID,
				ProjectID:      f.tower.ID,
			})
			f.record(t, ledger.Transaction{Kind: ledger.KindReceivable, Amount: dec("800"), Date: generic.DatePtr(2025, time.March, 20), CounterpartyID: f.client.ID, ProjectID: f.tower.ID})

			// WHEN: the check is pending
			before, err := f.svc.Report(ctx, 0)
			require.NoError(t, err)

			// THEN
			assert.Equal(t, generic.NewDate(2025, time.March, 1), before.AsOf)
			assert.Equal(t, generic.NewDate(2025, time.March, 11), before.Upcoming.To)
			assert.True(t, dec("200").Equal(before.TotalUnsettledChecks))
			assert.True(t, dec("200").Equal(before.Upcoming.TotalPayableLike))
			assert.Empty(t, before.Upcoming.Receivable, "receivable is outside the window")
			assert.True(t, dec("500").Equal(before.Balance(f.acme.ID).OutstandingPayable))
			assert.Equal(t, "Acme Steel", before.Balance(f.acme.ID).Name)

			// WHEN: settled
			_, err = f.svc.SetSettled(ctx, check.ID, true)
			require.NoError(t, err)
			after, err := f.svc.Report(ctx, 0)
			require.NoError(t, err)

			// THEN
			assert.True(t, after.TotalUnsettledChecks.IsZero())
			assert.True(t, dec("200").Equal(after.TotalPaid))
			assert.True(t, dec("300").Equal(after.Balance(f.acme.ID).OutstandingPayable))
			assert.True(t, dec("500").Equal(after.NetPosition))

			// AND: a wider window picks up the receivable
			wide, err := f.svc.Report(ctx, 30)
			require.NoError(t, err)
			assert.Len(t, wide.Upcoming.Receivable, 1)
		})
	}
}

func TestService_ProjectReport(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store)
			villa, err := f.svc.AddProject(ctx, ledger.Project{Name: "Villa"})
			require.NoError(t, err)
			f.record(t, ledger.Transaction{Kind: ledger.KindCollection, Amount: dec("1000"), CounterpartyID: f.client.ID, ProjectID: f.tower.ID})
			f.record(t, ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("400"), CounterpartyID: f.acme.ID, ProjectID: f.tower.ID})
			f.record(t, ledger.Transaction{Kind: ledger.KindPayment, Amount: dec("999"), CounterpartyID: f.acme.ID, ProjectID: villa.ID})

			r, err := f.svc.ProjectReport(ctx, f.tower.ID)
			require.NoError(t, err)

			require.Len(t, r.Projects, 1)
			assert.Equal(t, f.tower.ID, r.Projects[0].ProjectID)
			assert.True(t, dec("600").Equal(r.Projects[0].Net))
			assert.True(t, dec("400").Equal(r.TotalPaid))

			_, err = f.svc.ProjectReport(ctx, "missing")
			assert.ErrorIs(t, err, generic.ErrNotFound)
		})
	}
}
