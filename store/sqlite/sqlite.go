/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements inventory.Store and ledger.Store on one database so that a
  production run, a ledger edit or a full backup restore commits in a single
  database transaction.

INTERFACES IMPLEMENTED:
  inventory.Store: items, recipe lines, movements, audit log
  ledger.Store:    counterparties, projects, transactions
  generic.Transactor: WithTx

KEY TABLES:
  items, recipe_lines, movements, audit_log
  counterparties, projects, transactions

  Foreign keys are enforced (_foreign_keys=on): recipe lines and movements
  pin their items, transactions pin their counterparty and project. The
  services check these references first and return typed errors; the
  constraints are the last line.

MIGRATIONS:
  Versioned goose migrations embedded from migrations/*.sql, applied on New().

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so ":memory:"
  databases behave like files. WithTx holds the write lock for its whole
  duration; calls made with the context it hands out run on the transaction.

USAGE:
  store, err := sqlite.New("./data/opsiron.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timestamps are stored fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ inventory.Store = (*Store)(nil)
	_ ledger.Store    = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type txKey struct{}

type boundTx struct {
	owner *Store
	tx    *sql.Tx
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx executes fn within a database transaction.
// If fn returns error, the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.bound(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.Backend("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, &boundTx{owner: s, tx: sqlTx})); err != nil {
		return err
	}
	return generic.Backend("commit", sqlTx.Commit())
}

func (s *Store) bound(ctx context.Context) *sql.Tx {
	b, _ := ctx.Value(txKey{}).(*boundTx)
	if b == nil || b.owner != s {
		return nil
	}
	return b.tx
}

// conn returns the transaction bound to ctx, or the database.
func (s *Store) conn(ctx context.Context) querier {
	if tx := s.bound(ctx); tx != nil {
		return tx
	}
	return s.db
}

func (s *Store) read(ctx context.Context) func() {
	if s.bound(ctx) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(ctx context.Context) func() {
	if s.bound(ctx) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// =============================================================================
// ITEMS
// =============================================================================

const itemColumns = `id, name, unit, on_hand, kind, minimum_threshold, created_at, updated_at`

func (s *Store) ListItems(ctx context.Context) ([]inventory.StockItem, error) {
	defer s.read(ctx)()

	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY name, id`)
	if err != nil {
		return nil, generic.Backend("list items", err)
	}
	defer rows.Close()

	var items []inventory.StockItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, generic.Backend("list items", rows.Err())
}

func (s *Store) GetItem(ctx context.Context, id inventory.ItemID) (*inventory.StockItem, error) {
	defer s.read(ctx)()

	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) InsertItem(ctx context.Context, item inventory.StockItem) error {
	defer s.write(ctx)()

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.Name, item.Unit, item.OnHand.String(), item.Kind,
		item.MinimumThreshold.String(), formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	return translate("insert item", "item", string(item.ID), err)
}

func (s *Store) UpdateItem(ctx context.Context, item inventory.StockItem) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE items
		SET name = ?, unit = ?, on_hand = ?, kind = ?, minimum_threshold = ?, updated_at = ?
		WHERE id = ?
	`,
		item.Name, item.Unit, item.OnHand.String(), item.Kind,
		item.MinimumThreshold.String(), formatTime(item.UpdatedAt), item.ID,
	)
	return affected("update item", "item", string(item.ID), res, err)
}

func (s *Store) DeleteItem(ctx context.Context, id inventory.ItemID) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	return affected("delete item", "item", string(id), res, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (inventory.StockItem, error) {
	var (
		it                   inventory.StockItem
		onHand, threshold    string
		createdAt, updatedAt string
	)
	err := row.Scan(&it.ID, &it.Name, &it.Unit, &onHand, &it.Kind, &threshold, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return it, err
	}
	if err != nil {
		return it, generic.Backend("scan item", err)
	}
	if it.OnHand, err = decimal.NewFromString(onHand); err != nil {
		return it, generic.Backend("scan item", err)
	}
	if it.MinimumThreshold, err = decimal.NewFromString(threshold); err != nil {
		return it, generic.Backend("scan item", err)
	}
	it.CreatedAt = parseTime(createdAt)
	it.UpdatedAt = parseTime(updatedAt)
	return it, nil
}

// =============================================================================
// RECIPES
// =============================================================================

func (s *Store) RecipeLines(ctx context.Context, product inventory.ItemID) ([]inventory.RecipeLine, error) {
	defer s.read(ctx)()
	return s.queryRecipeLines(ctx, `
		SELECT product_id, component_id, quantity_per_unit FROM recipe_lines
		WHERE product_id = ? ORDER BY position
	`, product)
}

func (s *Store) ListRecipeLines(ctx context.Context) ([]inventory.RecipeLine, error) {
	defer s.read(ctx)()
	return s.queryRecipeLines(ctx, `
		SELECT product_id, component_id, quantity_per_unit FROM recipe_lines
		ORDER BY product_id, position
	`)
}

func (s *Store) queryRecipeLines(ctx context.Context, query string, args ...any) ([]inventory.RecipeLine, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, generic.Backend("query recipe lines", err)
	}
	defer rows.Close()

	var lines []inventory.RecipeLine
	for rows.Next() {
		var (
			l   inventory.RecipeLine
			qty string
		)
		if err := rows.Scan(&l.ProductID, &l.ComponentID, &qty); err != nil {
			return nil, generic.Backend("scan recipe line", err)
		}
		if l.QuantityPerUnit, err = decimal.NewFromString(qty); err != nil {
			return nil, generic.Backend("scan recipe line", err)
		}
		lines = append(lines, l)
	}
	return lines, generic.Backend("query recipe lines", rows.Err())
}

// ReplaceRecipe swaps the recipe of product. Outside WithTx it opens its own
// transaction so the delete and inserts land together.
func (s *Store) ReplaceRecipe(ctx context.Context, product inventory.ItemID, lines []inventory.RecipeLine) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		q := s.conn(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM recipe_lines WHERE product_id = ?`, product); err != nil {
			return generic.Backend("replace recipe", err)
		}
		for i, l := range lines {
			_, err := q.ExecContext(ctx, `
				INSERT INTO recipe_lines (product_id, component_id, quantity_per_unit, position)
				VALUES (?, ?, ?, ?)
			`, product, l.ComponentID, l.QuantityPerUnit.String(), i)
			if err := translate("replace recipe", "recipe line", string(l.ComponentID), err); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// MOVEMENTS AND AUDIT (append-only)
// =============================================================================

func (s *Store) AppendMovements(ctx context.Context, moves []inventory.Movement) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		for _, m := range moves {
			_, err := s.conn(ctx).ExecContext(ctx, `
				INSERT INTO movements (id, item_id, delta, reason, run_id, at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, m.ID, m.ItemID, m.Delta.String(), m.Reason, m.RunID, formatTime(m.At))
			if err := translate("append movement", "movement", m.ID, err); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CountMovements(ctx context.Context, item inventory.ItemID) (int, error) {
	defer s.read(ctx)()

	var n int
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM movements WHERE item_id = ?`, item).Scan(&n)
	return n, generic.Backend("count movements", err)
}

func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	defer s.write(ctx)()

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, message, category) VALUES (?, ?, ?, ?)
	`, e.ID, formatTime(e.Timestamp), e.Message, e.Category)
	return translate("append audit", "audit entry", e.ID, err)
}

// ListAudit returns matching entries newest first.
func (s *Store) ListAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	defer s.read(ctx)()

	query := `SELECT id, timestamp, message, category FROM audit_log`
	var args []any
	if len(filter.Categories) > 0 {
		query += ` WHERE category IN (` + placeholders(len(filter.Categories)) + `)`
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY seq DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, generic.Backend("list audit", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			e  generic.AuditEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Message, &e.Category); err != nil {
			return nil, generic.Backend("scan audit", err)
		}
		e.Timestamp = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, generic.Backend("list audit", rows.Err())
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

func (s *Store) ListCounterparties(ctx context.Context) ([]ledger.Counterparty, error) {
	defer s.read(ctx)()

	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, name, phone, note, created_at FROM counterparties ORDER BY name, id`)
	if err != nil {
		return nil, generic.Backend("list counterparties", err)
	}
	defer rows.Close()

	var out []ledger.Counterparty
	for rows.Next() {
		c, err := scanCounterparty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, generic.Backend("list counterparties", rows.Err())
}

func (s *Store) GetCounterparty(ctx context.Context, id ledger.CounterpartyID) (*ledger.Counterparty, error) {
	defer s.read(ctx)()

	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, phone, note, created_at FROM counterparties WHERE id = ?`, id)
	c, err := scanCounterparty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) InsertCounterparty(ctx context.Context, c ledger.Counterparty) error {
	defer s.write(ctx)()

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO counterparties (id, name, phone, note, created_at) VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Phone, c.Note, formatTime(c.CreatedAt))
	return translate("insert counterparty", "counterparty", string(c.ID), err)
}

func (s *Store) UpdateCounterparty(ctx context.Context, c ledger.Counterparty) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE counterparties SET name = ?, phone = ?, note = ? WHERE id = ?
	`, c.Name, c.Phone, c.Note, c.ID)
	return affected("update counterparty", "counterparty", string(c.ID), res, err)
}

func (s *Store) DeleteCounterparty(ctx context.Context, id ledger.CounterpartyID) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM counterparties WHERE id = ?`, id)
	return affected("delete counterparty", "counterparty", string(id), res, err)
}

func scanCounterparty(row scanner) (ledger.Counterparty, error) {
	var (
		c         ledger.Counterparty
		createdAt string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Note, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, err
	}
	if err != nil {
		return c, generic.Backend("scan counterparty", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (s *Store) ListProjects(ctx context.Context) ([]ledger.Project, error) {
	defer s.read(ctx)()

	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, name, status, note, created_at FROM projects ORDER BY name, id`)
	if err != nil {
		return nil, generic.Backend("list projects", err)
	}
	defer rows.Close()

	var out []ledger.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, generic.Backend("list projects", rows.Err())
}

func (s *Store) GetProject(ctx context.Context, id ledger.ProjectID) (*ledger.Project, error) {
	defer s.read(ctx)()

	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, status, note, created_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) InsertProject(ctx context.Context, p ledger.Project) error {
	defer s.write(ctx)()

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO projects (id, name, status, note, created_at) VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Status, p.Note, formatTime(p.CreatedAt))
	return translate("insert project", "project", string(p.ID), err)
}

func (s *Store) UpdateProject(ctx context.Context, p ledger.Project) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE projects SET name = ?, status = ?, note = ? WHERE id = ?
	`, p.Name, p.Status, p.Note, p.ID)
	return affected("update project", "project", string(p.ID), res, err)
}

func (s *Store) DeleteProject(ctx context.Context, id ledger.ProjectID) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return affected("delete project", "project", string(id), res, err)
}

func scanProject(row scanner) (ledger.Project, error) {
	var (
		p         ledger.Project
		createdAt string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.Note, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, err
	}
	if err != nil {
		return p, generic.Backend("scan project", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// =============================================================================
// LEDGER TRANSACTIONS
// =============================================================================

const transactionColumns = `id, date, amount, raw_amount, currency, kind, counterparty_id,
	project_id, settled, description, created_at`

// ListTransactions returns matching transactions ordered by creation time.
func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	defer s.read(ctx)()

	var (
		where []string
		args  []any
	)
	if filter.CounterpartyID != "" {
		where = append(where, "counterparty_id = ?")
		args = append(args, filter.CounterpartyID)
	}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if len(filter.Kinds) > 0 {
		where = append(where, "kind IN ("+placeholders(len(filter.Kinds))+")")
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, generic.Backend("list transactions", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, generic.Backend("list transactions", rows.Err())
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	defer s.read(ctx)()

	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	defer s.write(ctx)()

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID, nullDate(tx.Date), tx.Amount.String(), tx.RawAmount.String(), tx.Currency,
		tx.Kind, tx.CounterpartyID, nullString(string(tx.ProjectID)), tx.Settled,
		tx.Description, formatTime(tx.CreatedAt),
	)
	return translate("insert transaction", "transaction", string(tx.ID), err)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, amount = ?, raw_amount = ?, currency = ?, kind = ?, counterparty_id = ?,
		    project_id = ?, settled = ?, description = ?
		WHERE id = ?
	`,
		nullDate(tx.Date), tx.Amount.String(), tx.RawAmount.String(), tx.Currency, tx.Kind,
		tx.CounterpartyID, nullString(string(tx.ProjectID)), tx.Settled, tx.Description, tx.ID,
	)
	return affected("update transaction", "transaction", string(tx.ID), res, err)
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	defer s.write(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return affected("delete transaction", "transaction", string(id), res, err)
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		tx                ledger.Transaction
		date, projectID   sql.NullString
		amount, rawAmount string
		createdAt         string
	)
	err := row.Scan(&tx.ID, &date, &amount, &rawAmount, &tx.Currency, &tx.Kind,
		&tx.CounterpartyID, &projectID, &tx.Settled, &tx.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, err
	}
	if err != nil {
		return tx, generic.Backend("scan transaction", err)
	}

	if date.Valid {
		d, err := generic.ParseDate(date.String)
		if err != nil {
			return tx, generic.Backend("scan transaction", err)
		}
		tx.Date = &d
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, generic.Backend("scan transaction", err)
	}
	if tx.RawAmount, err = decimal.NewFromString(rawAmount); err != nil {
		return tx, generic.Backend("scan transaction", err)
	}
	tx.ProjectID = ledger.ProjectID(projectID.String)
	tx.CreatedAt = parseTime(createdAt)
	return tx, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// translate maps SQLite constraint failures to domain errors.
func translate(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return &generic.ConflictError{Entity: entity, ID: id}
		case sqlite3.ErrConstraintForeignKey:
			return &generic.ReferentialIntegrityError{Entity: entity, ID: id, Dependents: []string{"a missing or dependent row"}}
		}
	}
	return generic.Backend(op, err)
}

// affected turns "no row matched" into NotFoundError.
func affected(op, entity, id string, res sql.Result, err error) error {
	if err != nil {
		return translate(op, entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return generic.Backend(op, err)
	}
	if n == 0 {
		return &generic.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
