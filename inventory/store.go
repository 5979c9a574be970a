package inventory

import (
	"context"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
)

// Repository persists stock items, recipes, movements and the audit log.
//
// Contract shared by implementations:
//   - GetItem returns (nil, nil) when the item does not exist.
//   - InsertItem fails with *generic.ConflictError on a duplicate id.
//   - UpdateItem and DeleteItem fail with *generic.NotFoundError on a missing id.
//   - ReplaceRecipe swaps the whole recipe of product (empty lines clears it).
//   - Movements and audit entries are append-only.
type Repository interface {
	ListItems(ctx context.Context) ([]StockItem, error)
	GetItem(ctx context.Context, id ItemID) (*StockItem, error)
	InsertItem(ctx context.Context, item StockItem) error
	UpdateItem(ctx context.Context, item StockItem) error
	DeleteItem(ctx context.Context, id ItemID) error

	RecipeLines(ctx context.Context, product ItemID) ([]RecipeLine, error)
	ListRecipeLines(ctx context.Context) ([]RecipeLine, error)
	ReplaceRecipe(ctx context.Context, product ItemID, lines []RecipeLine) error

	AppendMovements(ctx context.Context, moves []Movement) error
	CountMovements(ctx context.Context, item ItemID) (int, error)

	AppendAudit(ctx context.Context, entry generic.AuditEntry) error
	ListAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error)
}

// Store is a Repository that can run several calls atomically.
type Store interface {
	Repository
	generic.Transactor
}
