/*
Package ledger tracks the cash flow of a construction company: what is owed
to and by each counterparty, per project, and which checks are still pending.

KEY CONCEPTS:
  - Transaction: one dated (or undated) financial event of a given Kind
  - Counterparty: who the money moves to or from
  - Project: the job a transaction belongs to
  - Report: balances folded from the full transaction list on every read

TRANSACTION KINDS:
  payable     we owe the counterparty            (obligation out)
  payment     we paid the counterparty           (cash out)
  receivable  the counterparty owes us           (obligation in)
  collection  the counterparty paid us           (cash in)
  check       deferred payment we issued; pending until settled

CHECK STATE MACHINE:
  Pending --(confirmed settle)--> Settled
  Settled --(confirmed unsettle)--> Pending
  There is no time-based transition. A settled check counts as a payment.

UNDATED TRANSACTIONS:
  Date == nil means "due at project completion". Undated transactions count
  towards balances but never fall inside an upcoming-due window. Checks must
  carry a date.

SEE ALSO:
  - aggregate.go: Report computation
  - service.go: store-backed operations
*/
package ledger

import (
	"time"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND KINDS
// =============================================================================

type (
	TransactionID  string
	CounterpartyID string
	ProjectID      string
)

type Kind string

const (
	KindCollection Kind = "collection"
	KindPayment    Kind = "payment"
	KindPayable    Kind = "payable"
	KindReceivable Kind = "receivable"
	KindCheck      Kind = "check"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCollection, KindPayment, KindPayable, KindReceivable, KindCheck:
		return true
	}
	return false
}

// Settleable reports whether the settled flag means anything for this kind.
func (k Kind) Settleable() bool {
	return k == KindPayable || k == KindReceivable || k == KindCheck
}

// =============================================================================
// ENTITIES
// =============================================================================

type Transaction struct {
	ID   TransactionID
	Date *generic.Date // nil = due at project completion

	// Amount is the figure used by every total. RawAmount and Currency keep
	// what was entered; no conversion happens in this package.
	Amount    decimal.Decimal
	RawAmount decimal.Decimal
	Currency  string

	Kind           Kind
	CounterpartyID CounterpartyID
	ProjectID      ProjectID // optional
	Settled        bool
	Description    string
	CreatedAt      time.Time
}

// PendingCheck is true for a check that has not been settled.
func (t Transaction) PendingCheck() bool {
	return t.Kind == KindCheck && !t.Settled
}

// SettledCheck is true for a check that has been honored.
func (t Transaction) SettledCheck() bool {
	return t.Kind == KindCheck && t.Settled
}

type Counterparty struct {
	ID        CounterpartyID
	Name      string
	Phone     string
	Note      string
	CreatedAt time.Time
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectCompleted
}

type Project struct {
	ID        ProjectID
	Name      string
	Status    ProjectStatus
	Note      string
	CreatedAt time.Time
}

// TransactionFilter narrows ListTransactions. Zero value matches everything.
type TransactionFilter struct {
	CounterpartyID CounterpartyID
	ProjectID      ProjectID
	Kinds          []Kind
}

func (f TransactionFilter) Matches(t Transaction) bool {
	if f.CounterpartyID != "" && t.CounterpartyID != f.CounterpartyID {
		return false
	}
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == t.Kind {
			return true
		}
	}
	return false
}
