/*
Package backup exports and restores the whole dataset as one JSON document.

DOCUMENT:
  {
    "version": 1,
    "exported_at": "...",
    "items": [...], "recipes": [...],
    "counterparties": [...], "projects": [...], "transactions": [...]
  }

  Stock movements and the audit log are history, not state, and are not part
  of the document. A restore appends its own audit entry.

DECODE:
  Unknown fields, a version other than Version and tag violations are
  rejected before anything touches the store.

IMPORT:
  Upsert by id in foreign-key order:
    items -> recipes -> counterparties -> projects -> transactions
  inside ONE store transaction. A reference that resolves neither to the
  document nor to existing data fails the whole import. Every stored recipe
  is re-checked after the items land, so a kind change that breaks one
  fails the import too.

SEE ALSO:
  - document.go: wire types and conversion
*/
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// Store is everything a full restore writes to, atomically.
type Store interface {
	inventory.Repository
	ledger.Repository
	generic.Transactor
}

type Service struct {
	store Store
	clock generic.Clock
	ids   generic.IDGenerator
	log   logrus.FieldLogger
}

func NewService(store Store, clock generic.Clock, ids generic.IDGenerator, log logrus.FieldLogger) *Service {
	return &Service{
		store: store,
		clock: clock,
		ids:   ids,
		log:   log.WithField("module", "backup"),
	}
}

// Summary counts what an import wrote.
type Summary struct {
	Items          int `json:"items"`
	Recipes        int `json:"recipes"`
	Counterparties int `json:"counterparties"`
	Projects       int `json:"projects"`
	Transactions   int `json:"transactions"`
}

// =============================================================================
// EXPORT
// =============================================================================

func (s *Service) Export(ctx context.Context) (Document, error) {
	doc := Document{Version: Version, ExportedAt: s.clock.Now()}

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return Document{}, err
	}
	for _, it := range items {
		doc.Items = append(doc.Items, fromItem(it))
	}

	lines, err := s.store.ListRecipeLines(ctx)
	if err != nil {
		return Document{}, err
	}
	for _, l := range lines {
		doc.Recipes = append(doc.Recipes, fromRecipeLine(l))
	}

	cps, err := s.store.ListCounterparties(ctx)
	if err != nil {
		return Document{}, err
	}
	for _, c := range cps {
		doc.Counterparties = append(doc.Counterparties, fromCounterparty(c))
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return Document{}, err
	}
	for _, p := range projects {
		doc.Projects = append(doc.Projects, fromProject(p))
	}

	txs, err := s.store.ListTransactions(ctx, ledger.TransactionFilter{})
	if err != nil {
		return Document{}, err
	}
	for _, tx := range txs {
		doc.Transactions = append(doc.Transactions, fromTransaction(tx))
	}

	s.log.WithFields(logrus.Fields{
		"items":        len(doc.Items),
		"transactions": len(doc.Transactions),
	}).Info("backup exported")
	return doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// =============================================================================
// DECODE
// =============================================================================

// Decode parses and validates a document. It never touches a store.
func Decode(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return Document{}, generic.Invalid("body", "malformed backup: %v", err)
	}
	if doc.Version != Version {
		return Document{}, generic.Invalid("version", "unsupported backup version %d (want %d)", doc.Version, Version)
	}
	if err := generic.ValidateStruct(doc); err != nil {
		return Document{}, err
	}
	if err := doc.checkValues(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// =============================================================================
// IMPORT
// =============================================================================

// Import restores doc. Nothing is written unless everything is.
func (s *Service) Import(ctx context.Context, doc Document) (Summary, error) {
	if doc.Version != Version {
		return Summary{}, generic.Invalid("version", "unsupported backup version %d (want %d)", doc.Version, Version)
	}
	if err := generic.ValidateStruct(doc); err != nil {
		return Summary{}, err
	}
	if err := doc.checkValues(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		for _, it := range doc.Items {
			if err := s.upsertItem(ctx, it.toDomain()); err != nil {
				return err
			}
			sum.Items++
		}

		products, recipes := doc.recipesByProduct()
		for _, product := range products {
			lines := recipes[product]
			if err := s.checkRecipe(ctx, product, lines); err != nil {
				return err
			}
			if err := s.store.ReplaceRecipe(ctx, product, lines); err != nil {
				return err
			}
			sum.Recipes++
		}
		if err := s.recheckStoredRecipes(ctx); err != nil {
			return err
		}

		for _, c := range doc.Counterparties {
			if err := s.upsertCounterparty(ctx, c.toDomain()); err != nil {
				return err
			}
			sum.Counterparties++
		}

		for _, p := range doc.Projects {
			if err := s.upsertProject(ctx, p.toDomain()); err != nil {
				return err
			}
			sum.Projects++
		}

		for i, t := range doc.Transactions {
			tx := t.toDomain()
			if err := s.checkTransactionRefs(ctx, i, tx); err != nil {
				return err
			}
			if err := s.upsertTransaction(ctx, tx); err != nil {
				return err
			}
			sum.Transactions++
		}

		return s.store.AppendAudit(ctx, generic.AuditEntry{
			ID:        s.ids.NewID("audit"),
			Timestamp: s.clock.Now(),
			Message: fmt.Sprintf("Backup restored: %d items, %d recipes, %d counterparties, %d projects, %d transactions",
				sum.Items, sum.Recipes, sum.Counterparties, sum.Projects, sum.Transactions),
			Category: generic.AuditSystem,
		})
	})
	if err != nil {
		s.log.WithError(err).Warn("backup import rejected")
		return Summary{}, err
	}

	s.log.WithFields(logrus.Fields{
		"items":          sum.Items,
		"recipes":        sum.Recipes,
		"counterparties": sum.Counterparties,
		"projects":       sum.Projects,
		"transactions":   sum.Transactions,
	}).Info("backup imported")
	return sum, nil
}

func (s *Service) upsertItem(ctx context.Context, it inventory.StockItem) error {
	existing, err := s.store.GetItem(ctx, it.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.store.InsertItem(ctx, it)
	}
	return s.store.UpdateItem(ctx, it)
}

func (s *Service) upsertCounterparty(ctx context.Context, c ledger.Counterparty) error {
	existing, err := s.store.GetCounterparty(ctx, c.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.store.InsertCounterparty(ctx, c)
	}
	return s.store.UpdateCounterparty(ctx, c)
}

func (s *Service) upsertProject(ctx context.Context, p ledger.Project) error {
	existing, err := s.store.GetProject(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.store.InsertProject(ctx, p)
	}
	return s.store.UpdateProject(ctx, p)
}

func (s *Service) upsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	existing, err := s.store.GetTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.store.InsertTransaction(ctx, tx)
	}
	return s.store.UpdateTransaction(ctx, tx)
}

// checkRecipe applies the authoring rules of inventory.Service.SetRecipe to
// restored lines, against the items already upserted in this transaction.
func (s *Service) checkRecipe(ctx context.Context, product inventory.ItemID, lines []inventory.RecipeLine) error {
	field := fmt.Sprintf("recipes[%s]", product)
	target, err := s.store.GetItem(ctx, product)
	if err != nil {
		return err
	}
	if target == nil {
		return generic.Invalid(field, "product %s does not exist", product)
	}
	if !target.Kind.Producible() {
		return generic.Invalid(field, "%s is a %s and cannot have a recipe", target.Name, target.Kind)
	}
	seen := make(map[inventory.ItemID]bool, len(lines))
	for _, l := range lines {
		if l.ComponentID == product {
			return generic.Invalid(field, "a recipe cannot consume its own product")
		}
		if seen[l.ComponentID] {
			return generic.Invalid(field, "component %s listed twice", l.ComponentID)
		}
		seen[l.ComponentID] = true
		comp, err := s.store.GetItem(ctx, l.ComponentID)
		if err != nil {
			return err
		}
		if comp == nil {
			return generic.Invalid(field, "component %s does not exist", l.ComponentID)
		}
		if !comp.Kind.Consumable() {
			return generic.Invalid(field, "%s is a finished good and cannot be consumed", comp.Name)
		}
	}
	return nil
}

// recheckStoredRecipes runs checkRecipe over every recipe in the store, so an
// upserted item cannot change kind under a recipe the document left alone.
func (s *Service) recheckStoredRecipes(ctx context.Context) error {
	lines, err := s.store.ListRecipeLines(ctx)
	if err != nil {
		return err
	}
	book := inventory.NewRecipeBook(lines)
	for _, product := range book.Products() {
		if err := s.checkRecipe(ctx, product, book.Lines(product)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkTransactionRefs(ctx context.Context, i int, tx ledger.Transaction) error {
	cp, err := s.store.GetCounterparty(ctx, tx.CounterpartyID)
	if err != nil {
		return err
	}
	if cp == nil {
		return generic.Invalid(fmt.Sprintf("transactions[%d].counterparty_id", i), "counterparty %s does not exist", tx.CounterpartyID)
	}
	if tx.ProjectID == "" {
		return nil
	}
	p, err := s.store.GetProject(ctx, tx.ProjectID)
	if err != nil {
		return err
	}
	if p == nil {
		return generic.Invalid(fmt.Sprintf("transactions[%d].project_id", i), "project %s does not exist", tx.ProjectID)
	}
	return nil
}
