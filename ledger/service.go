package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/sirupsen/logrus"
)

// Service applies ledger operations against a Store. Referential checks are
// done here, inside the same store transaction as the write they guard.
type Service struct {
	store  Store
	clock  generic.Clock
	ids    generic.IDGenerator
	log    logrus.FieldLogger
	window int
}

func NewService(store Store, clock generic.Clock, ids generic.IDGenerator, log logrus.FieldLogger, windowDays int) *Service {
	if windowDays <= 0 {
		windowDays = DefaultUpcomingWindow
	}
	return &Service{
		store:  store,
		clock:  clock,
		ids:    ids,
		log:    log.WithField("module", "ledger"),
		window: windowDays,
	}
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

func (s *Service) Counterparties(ctx context.Context) ([]Counterparty, error) {
	return s.store.ListCounterparties(ctx)
}

func (s *Service) Counterparty(ctx context.Context, id CounterpartyID) (Counterparty, error) {
	c, err := s.store.GetCounterparty(ctx, id)
	if err != nil {
		return Counterparty{}, err
	}
	if c == nil {
		return Counterparty{}, &generic.NotFoundError{Entity: "counterparty", ID: string(id)}
	}
	return *c, nil
}

func (s *Service) AddCounterparty(ctx context.Context, c Counterparty) (Counterparty, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Counterparty{}, generic.Invalid("name", "is required")
	}
	c.ID = CounterpartyID(s.ids.NewID("cp"))
	c.CreatedAt = s.clock.Now()
	if err := s.store.InsertCounterparty(ctx, c); err != nil {
		return Counterparty{}, err
	}
	s.log.WithField("counterparty_id", c.ID).Info("counterparty added")
	return c, nil
}

func (s *Service) UpdateCounterparty(ctx context.Context, c Counterparty) (Counterparty, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Counterparty{}, generic.Invalid("name", "is required")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.Counterparty(ctx, c.ID)
		if err != nil {
			return err
		}
		c.CreatedAt = existing.CreatedAt
		return s.store.UpdateCounterparty(ctx, c)
	})
	return c, err
}

// DeleteCounterparty is refused while any transaction references it.
func (s *Service) DeleteCounterparty(ctx context.Context, id CounterpartyID) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Counterparty(ctx, id); err != nil {
			return err
		}
		txs, err := s.store.ListTransactions(ctx, TransactionFilter{CounterpartyID: id})
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			return &generic.ReferentialIntegrityError{
				Entity:     "counterparty",
				ID:         string(id),
				Dependents: []string{fmt.Sprintf("%d transactions", len(txs))},
			}
		}
		return s.store.DeleteCounterparty(ctx, id)
	})
}

// =============================================================================
// PROJECTS
// =============================================================================

func (s *Service) Projects(ctx context.Context) ([]Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *Service) Project(ctx context.Context, id ProjectID) (Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if p == nil {
		return Project{}, &generic.NotFoundError{Entity: "project", ID: string(id)}
	}
	return *p, nil
}

func (s *Service) AddProject(ctx context.Context, p Project) (Project, error) {
	if err := validateProject(&p); err != nil {
		return Project{}, err
	}
	p.ID = ProjectID(s.ids.NewID("prj"))
	p.CreatedAt = s.clock.Now()
	if err := s.store.InsertProject(ctx, p); err != nil {
		return Project{}, err
	}
	s.log.WithField("project_id", p.ID).Info("project added")
	return p, nil
}

func (s *Service) UpdateProject(ctx context.Context, p Project) (Project, error) {
	if err := validateProject(&p); err != nil {
		return Project{}, err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.Project(ctx, p.ID)
		if err != nil {
			return err
		}
		p.CreatedAt = existing.CreatedAt
		return s.store.UpdateProject(ctx, p)
	})
	return p, err
}

// DeleteProject is refused while any transaction references the project.
func (s *Service) DeleteProject(ctx context.Context, id ProjectID) error {
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Project(ctx, id); err != nil {
			return err
		}
		txs, err := s.store.ListTransactions(ctx, TransactionFilter{ProjectID: id})
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			return &generic.ReferentialIntegrityError{
				Entity:     "project",
				ID:         string(id),
				Dependents: []string{fmt.Sprintf("%d transactions", len(txs))},
			}
		}
		return s.store.DeleteProject(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.WithField("project_id", id).Info("project deleted")
	return nil
}

func validateProject(p *Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return generic.Invalid("name", "is required")
	}
	if p.Status == "" {
		p.Status = ProjectActive
	}
	if !p.Status.Valid() {
		return generic.Invalid("status", "unknown status %q", p.Status)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, filter)
}

func (s *Service) Transaction(ctx context.Context, id TransactionID) (Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if tx == nil {
		return Transaction{}, &generic.NotFoundError{Entity: "transaction", ID: string(id)}
	}
	return *tx, nil
}

func (s *Service) AddTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	tx.ID = TransactionID(s.ids.NewID("tx"))
	tx.CreatedAt = s.clock.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.validateTransaction(ctx, &tx); err != nil {
			return err
		}
		return s.store.InsertTransaction(ctx, tx)
	})
	if err != nil {
		return Transaction{}, err
	}
	s.log.WithFields(logrus.Fields{
		"transaction_id":  tx.ID,
		"kind":            tx.Kind,
		"counterparty_id": tx.CounterpartyID,
		"amount":          tx.Amount.String(),
	}).Info("transaction recorded")
	return tx, nil
}

// UpdateTransaction rewrites the editable fields of tx. The settlement state
// is kept from the stored entry; only SetSettled changes it.
func (s *Service) UpdateTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.Transaction(ctx, tx.ID)
		if err != nil {
			return err
		}
		tx.CreatedAt = existing.CreatedAt
		tx.Settled = existing.Settled
		if err := s.validateTransaction(ctx, &tx); err != nil {
			return err
		}
		return s.store.UpdateTransaction(ctx, tx)
	})
	return tx, err
}

func (s *Service) DeleteTransaction(ctx context.Context, id TransactionID) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Transaction(ctx, id); err != nil {
			return err
		}
		return s.store.DeleteTransaction(ctx, id)
	})
}

// SetSettled moves a check (or payable/receivable) between Pending and
// Settled. Asking for the state it is already in is rejected so that every
// call corresponds to one confirmed transition.
func (s *Service) SetSettled(ctx context.Context, id TransactionID, settled bool) (Transaction, error) {
	var tx Transaction
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		tx, err = s.Transaction(ctx, id)
		if err != nil {
			return err
		}
		if !tx.Kind.Settleable() {
			return generic.Invalid("kind", "%s transactions cannot be settled", tx.Kind)
		}
		if tx.Settled == settled {
			return generic.Invalid("settled", "transaction is already %s", settledLabel(settled))
		}
		tx.Settled = settled
		return s.store.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		return Transaction{}, err
	}
	s.log.WithFields(logrus.Fields{"transaction_id": id, "state": settledLabel(settled)}).Info("settlement changed")
	return tx, nil
}

func settledLabel(settled bool) string {
	if settled {
		return "settled"
	}
	return "pending"
}

func (s *Service) validateTransaction(ctx context.Context, tx *Transaction) error {
	if !tx.Kind.Valid() {
		return generic.Invalid("kind", "unknown kind %q", tx.Kind)
	}
	if !tx.Amount.IsPositive() {
		return generic.Invalid("amount", "must be greater than zero")
	}
	if tx.RawAmount.IsZero() {
		tx.RawAmount = tx.Amount
	}
	if tx.RawAmount.IsNegative() {
		return generic.Invalid("raw_amount", "must not be negative")
	}
	tx.Currency = strings.ToUpper(strings.TrimSpace(tx.Currency))
	if tx.Currency == "" {
		return generic.Invalid("currency", "is required")
	}
	if tx.Kind == KindCheck && tx.Date == nil {
		return generic.Invalid("date", "a check must have a due date")
	}
	if !tx.Kind.Settleable() {
		tx.Settled = false
	}

	if tx.CounterpartyID == "" {
		return generic.Invalid("counterparty_id", "is required")
	}
	cp, err := s.store.GetCounterparty(ctx, tx.CounterpartyID)
	if err != nil {
		return err
	}
	if cp == nil {
		return generic.Invalid("counterparty_id", "counterparty %s does not exist", tx.CounterpartyID)
	}
	if tx.ProjectID != "" {
		p, err := s.store.GetProject(ctx, tx.ProjectID)
		if err != nil {
			return err
		}
		if p == nil {
			return generic.Invalid("project_id", "project %s does not exist", tx.ProjectID)
		}
	}
	return nil
}

// =============================================================================
// REPORT
// =============================================================================

// Report aggregates every transaction as of today. windowDays <= 0 uses the
// configured window.
func (s *Service) Report(ctx context.Context, windowDays int) (Report, error) {
	if windowDays <= 0 {
		windowDays = s.window
	}
	txs, err := s.store.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		return Report{}, err
	}
	cps, err := s.store.ListCounterparties(ctx)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(txs, cps, generic.Today(s.clock), windowDays), nil
}

// ProjectReport aggregates the transactions of one project.
func (s *Service) ProjectReport(ctx context.Context, id ProjectID) (Report, error) {
	if _, err := s.Project(ctx, id); err != nil {
		return Report{}, err
	}
	txs, err := s.store.ListTransactions(ctx, TransactionFilter{ProjectID: id})
	if err != nil {
		return Report{}, err
	}
	cps, err := s.store.ListCounterparties(ctx)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(txs, cps, generic.Today(s.clock), s.window), nil
}

