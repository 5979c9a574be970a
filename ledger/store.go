package ledger

import (
	"context"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
)

// Repository persists counterparties, projects and transactions.
//
// Get* return (nil, nil) when the entity does not exist. Insert* fail with
// *generic.ConflictError on a duplicate id; Update* and Delete* fail with
// *generic.NotFoundError on a missing one.
type Repository interface {
	ListCounterparties(ctx context.Context) ([]Counterparty, error)
	GetCounterparty(ctx context.Context, id CounterpartyID) (*Counterparty, error)
	InsertCounterparty(ctx context.Context, c Counterparty) error
	UpdateCounterparty(ctx context.Context, c Counterparty) error
	DeleteCounterparty(ctx context.Context, id CounterpartyID) error

	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
	InsertProject(ctx context.Context, p Project) error
	UpdateProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, id ProjectID) error

	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	InsertTransaction(ctx context.Context, tx Transaction) error
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error
}

// Store is a Repository that can run several calls atomically.
type Store interface {
	Repository
	generic.Transactor
}
