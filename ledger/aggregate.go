package ledger

import (
	"sort"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/shopspring/decimal"
)

// DefaultUpcomingWindow is the number of days ahead the upcoming-due list covers.
const DefaultUpcomingWindow = 10

// =============================================================================
// REPORT TYPES
// =============================================================================

// CounterpartyBalance is the fold of one counterparty's transactions.
type CounterpartyBalance struct {
	CounterpartyID CounterpartyID
	Name           string

	Payables      decimal.Decimal
	Payments      decimal.Decimal
	SettledChecks decimal.Decimal
	PendingChecks decimal.Decimal
	Receivables   decimal.Decimal
	Collections   decimal.Decimal

	// Outstanding figures are clamped at zero; over-payment is not shown
	// as a negative balance.
	OutstandingPayable    decimal.Decimal
	OutstandingReceivable decimal.Decimal
}

// ProjectSummary is the cash actually moved for one project.
type ProjectSummary struct {
	ProjectID ProjectID
	Inflow    decimal.Decimal // collections
	Outflow   decimal.Decimal // payments + settled checks
	Net       decimal.Decimal
}

// UpcomingDue lists dated open obligations inside [From, To].
type UpcomingDue struct {
	From, To generic.Date

	PayableLike      []Transaction // open payables and pending checks
	Receivable       []Transaction // open receivables
	TotalPayableLike decimal.Decimal
	TotalReceivable  decimal.Decimal
}

type Report struct {
	AsOf generic.Date

	Counterparties []CounterpartyBalance
	Projects       []ProjectSummary

	TotalOutstandingPayable    decimal.Decimal
	TotalOutstandingReceivable decimal.Decimal

	UnsettledChecks      []Transaction // ordered by due date ascending
	TotalUnsettledChecks decimal.Decimal

	TotalPaid      decimal.Decimal // payments + settled checks
	TotalCollected decimal.Decimal

	Upcoming UpcomingDue

	// NetPosition = outstanding receivable - outstanding payable - unsettled checks.
	NetPosition decimal.Decimal
}

// =============================================================================
// AGGREGATE
// =============================================================================

// Aggregate folds txs into a Report as of asOf. It is a pure function of its
// inputs: the same transactions always yield the same report. windowDays <= 0
// falls back to DefaultUpcomingWindow.
func Aggregate(txs []Transaction, counterparties []Counterparty, asOf generic.Date, windowDays int) Report {
	if windowDays <= 0 {
		windowDays = DefaultUpcomingWindow
	}

	names := make(map[CounterpartyID]string, len(counterparties))
	for _, c := range counterparties {
		names[c.ID] = c.Name
	}

	balances := make(map[CounterpartyID]*CounterpartyBalance)
	projects := make(map[ProjectID]*ProjectSummary)
	balanceFor := func(id CounterpartyID) *CounterpartyBalance {
		b, ok := balances[id]
		if !ok {
			b = &CounterpartyBalance{CounterpartyID: id, Name: names[id]}
			balances[id] = b
		}
		return b
	}
	projectFor := func(id ProjectID) *ProjectSummary {
		p, ok := projects[id]
		if !ok {
			p = &ProjectSummary{ProjectID: id}
			projects[id] = p
		}
		return p
	}

	r := Report{
		AsOf: asOf,
		Upcoming: UpcomingDue{
			From: asOf,
			To:   asOf.AddDays(windowDays),
		},
	}

	for _, tx := range txs {
		b := balanceFor(tx.CounterpartyID)
		switch tx.Kind {
		case KindPayable:
			b.Payables = b.Payables.Add(tx.Amount)
		case KindPayment:
			b.Payments = b.Payments.Add(tx.Amount)
			r.TotalPaid = r.TotalPaid.Add(tx.Amount)
		case KindReceivable:
			b.Receivables = b.Receivables.Add(tx.Amount)
		case KindCollection:
			b.Collections = b.Collections.Add(tx.Amount)
			r.TotalCollected = r.TotalCollected.Add(tx.Amount)
		case KindCheck:
			if tx.PendingCheck() {
				b.PendingChecks = b.PendingChecks.Add(tx.Amount)
				r.UnsettledChecks = append(r.UnsettledChecks, tx)
				r.TotalUnsettledChecks = r.TotalUnsettledChecks.Add(tx.Amount)
			} else {
				b.SettledChecks = b.SettledChecks.Add(tx.Amount)
				r.TotalPaid = r.TotalPaid.Add(tx.Amount)
			}
		}

		if tx.ProjectID != "" {
			p := projectFor(tx.ProjectID)
			switch {
			case tx.Kind == KindCollection:
				p.Inflow = p.Inflow.Add(tx.Amount)
			case tx.Kind == KindPayment, tx.SettledCheck():
				p.Outflow = p.Outflow.Add(tx.Amount)
			}
		}

		if tx.Date != nil && !tx.Settled && tx.Date.Within(r.Upcoming.From, r.Upcoming.To) {
			switch tx.Kind {
			case KindPayable, KindCheck:
				r.Upcoming.PayableLike = append(r.Upcoming.PayableLike, tx)
				r.Upcoming.TotalPayableLike = r.Upcoming.TotalPayableLike.Add(tx.Amount)
			case KindReceivable:
				r.Upcoming.Receivable = append(r.Upcoming.Receivable, tx)
				r.Upcoming.TotalReceivable = r.Upcoming.TotalReceivable.Add(tx.Amount)
			}
		}
	}

	for _, b := range balances {
		b.OutstandingPayable = generic.ClampZero(b.Payables.Sub(b.Payments).Sub(b.SettledChecks))
		b.OutstandingReceivable = generic.ClampZero(b.Receivables.Sub(b.Collections))
		r.TotalOutstandingPayable = r.TotalOutstandingPayable.Add(b.OutstandingPayable)
		r.TotalOutstandingReceivable = r.TotalOutstandingReceivable.Add(b.OutstandingReceivable)
		r.Counterparties = append(r.Counterparties, *b)
	}
	sort.Slice(r.Counterparties, func(i, j int) bool {
		return r.Counterparties[i].CounterpartyID < r.Counterparties[j].CounterpartyID
	})

	for _, p := range projects {
		p.Net = p.Inflow.Sub(p.Outflow)
		r.Projects = append(r.Projects, *p)
	}
	sort.Slice(r.Projects, func(i, j int) bool { return r.Projects[i].ProjectID < r.Projects[j].ProjectID })

	sortByDueDate(r.UnsettledChecks)
	sortByDueDate(r.Upcoming.PayableLike)
	sortByDueDate(r.Upcoming.Receivable)

	r.NetPosition = r.TotalOutstandingReceivable.
		Sub(r.TotalOutstandingPayable).
		Sub(r.TotalUnsettledChecks)
	return r
}

// Balance returns the balance of one counterparty, zero-valued if it has no
// transactions.
func (r Report) Balance(id CounterpartyID) CounterpartyBalance {
	for _, b := range r.Counterparties {
		if b.CounterpartyID == id {
			return b
		}
	}
	return CounterpartyBalance{CounterpartyID: id}
}

// sortByDueDate orders by date ascending; undated entries go last and ties
// keep insertion order.
func sortByDueDate(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i].Date, txs[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
