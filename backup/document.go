package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// Version is the only document version Decode accepts.
const Version = 1

type Document struct {
	Version        int            `json:"version" validate:"required"`
	ExportedAt     time.Time      `json:"exported_at"`
	Items          []Item         `json:"items" validate:"dive"`
	Recipes        []RecipeLine   `json:"recipes" validate:"dive"`
	Counterparties []Counterparty `json:"counterparties" validate:"dive"`
	Projects       []Project      `json:"projects" validate:"dive"`
	Transactions   []Transaction  `json:"transactions" validate:"dive"`
}

type Item struct {
	ID               string          `json:"id" validate:"required"`
	Name             string          `json:"name" validate:"required"`
	Unit             string          `json:"unit" validate:"required"`
	Kind             string          `json:"kind" validate:"oneof=raw_material semi_finished finished"`
	OnHand           decimal.Decimal `json:"on_hand"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type RecipeLine struct {
	ProductID       string          `json:"product_id" validate:"required"`
	ComponentID     string          `json:"component_id" validate:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
}

type Counterparty struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Phone     string    `json:"phone,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Project struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Status    string    `json:"status" validate:"oneof=active completed"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Transaction struct {
	ID             string          `json:"id" validate:"required"`
	Date           *generic.Date   `json:"date,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	RawAmount      decimal.Decimal `json:"raw_amount"`
	Currency       string          `json:"currency" validate:"required"`
	Kind           string          `json:"kind" validate:"oneof=collection payment payable receivable check"`
	CounterpartyID string          `json:"counterparty_id" validate:"required"`
	ProjectID      string          `json:"project_id,omitempty"`
	Settled        bool            `json:"settled"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// checkValues covers what struct tags cannot express on decimals and
// cross-field rules.
func (d Document) checkValues() error {
	for i, it := range d.Items {
		if blank(it.Name) {
			return generic.Invalid(fmt.Sprintf("items[%d].name", i), "must not be blank")
		}
		if blank(it.Unit) {
			return generic.Invalid(fmt.Sprintf("items[%d].unit", i), "must not be blank")
		}
		if it.OnHand.IsNegative() {
			return generic.Invalid(fmt.Sprintf("items[%d].on_hand", i), "must not be negative")
		}
		if it.MinimumThreshold.IsNegative() {
			return generic.Invalid(fmt.Sprintf("items[%d].minimum_threshold", i), "must not be negative")
		}
	}
	for i, l := range d.Recipes {
		if !l.QuantityPerUnit.IsPositive() {
			return generic.Invalid(fmt.Sprintf("recipes[%d].quantity_per_unit", i), "must be greater than zero")
		}
	}
	for i, c := range d.Counterparties {
		if blank(c.Name) {
			return generic.Invalid(fmt.Sprintf("counterparties[%d].name", i), "must not be blank")
		}
	}
	for i, p := range d.Projects {
		if blank(p.Name) {
			return generic.Invalid(fmt.Sprintf("projects[%d].name", i), "must not be blank")
		}
	}
	for i, t := range d.Transactions {
		if blank(t.Currency) {
			return generic.Invalid(fmt.Sprintf("transactions[%d].currency", i), "must not be blank")
		}
		if !t.Amount.IsPositive() {
			return generic.Invalid(fmt.Sprintf("transactions[%d].amount", i), "must be greater than zero")
		}
		if t.RawAmount.IsNegative() {
			return generic.Invalid(fmt.Sprintf("transactions[%d].raw_amount", i), "must not be negative")
		}
		if ledger.Kind(t.Kind) == ledger.KindCheck && t.Date == nil {
			return generic.Invalid(fmt.Sprintf("transactions[%d].date", i), "a check must have a due date")
		}
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// recipesByProduct groups lines by product, keeping document order.
func (d Document) recipesByProduct() ([]inventory.ItemID, map[inventory.ItemID][]inventory.RecipeLine) {
	var order []inventory.ItemID
	byProduct := make(map[inventory.ItemID][]inventory.RecipeLine)
	for _, l := range d.Recipes {
		line := l.toDomain()
		if _, ok := byProduct[line.ProductID]; !ok {
			order = append(order, line.ProductID)
		}
		byProduct[line.ProductID] = append(byProduct[line.ProductID], line)
	}
	return order, byProduct
}

// =============================================================================
// CONVERSION
// =============================================================================

func fromItem(it inventory.StockItem) Item {
	return Item{
		ID:               string(it.ID),
		Name:             it.Name,
		Unit:             it.Unit,
		Kind:             string(it.Kind),
		OnHand:           it.OnHand,
		MinimumThreshold: it.MinimumThreshold,
		CreatedAt:        it.CreatedAt,
		UpdatedAt:        it.UpdatedAt,
	}
}

func (it Item) toDomain() inventory.StockItem {
	out := inventory.StockItem{
		ID:        inventory.ItemID(it.ID),
		Name:      strings.TrimSpace(it.Name),
		Unit:      strings.TrimSpace(it.Unit),
		OnHand:    it.OnHand,
		Kind:      inventory.Kind(it.Kind),
		CreatedAt: it.CreatedAt.UTC(),
		UpdatedAt: it.UpdatedAt.UTC(),
	}
	if out.Kind == inventory.KindRawMaterial {
		out.MinimumThreshold = it.MinimumThreshold
	}
	return out
}

func fromRecipeLine(l inventory.RecipeLine) RecipeLine {
	return RecipeLine{
		ProductID:       string(l.ProductID),
		ComponentID:     string(l.ComponentID),
		QuantityPerUnit: l.QuantityPerUnit,
	}
}

func (l RecipeLine) toDomain() inventory.RecipeLine {
	return inventory.RecipeLine{
		ProductID:       inventory.ItemID(l.ProductID),
		ComponentID:     inventory.ItemID(l.ComponentID),
		QuantityPerUnit: l.QuantityPerUnit,
	}
}

func fromCounterparty(c ledger.Counterparty) Counterparty {
	return Counterparty{ID: string(c.ID), Name: c.Name, Phone: c.Phone, Note: c.Note, CreatedAt: c.CreatedAt}
}

func (c Counterparty) toDomain() ledger.Counterparty {
	return ledger.Counterparty{
		ID:        ledger.CounterpartyID(c.ID),
		Name:      strings.TrimSpace(c.Name),
		Phone:     c.Phone,
		Note:      c.Note,
		CreatedAt: c.CreatedAt.UTC(),
	}
}

func fromProject(p ledger.Project) Project {
	return Project{ID: string(p.ID), Name: p.Name, Status: string(p.Status), Note: p.Note, CreatedAt: p.CreatedAt}
}

func (p Project) toDomain() ledger.Project {
	return ledger.Project{
		ID:        ledger.ProjectID(p.ID),
		Name:      strings.TrimSpace(p.Name),
		Status:    ledger.ProjectStatus(p.Status),
		Note:      p.Note,
		CreatedAt: p.CreatedAt.UTC(),
	}
}

func fromTransaction(tx ledger.Transaction) Transaction {
	return Transaction{
		ID:             string(tx.ID),
		Date:           tx.Date,
		Amount:         tx.Amount,
		RawAmount:      tx.RawAmount,
		Currency:       tx.Currency,
		Kind:           string(tx.Kind),
		CounterpartyID: string(tx.CounterpartyID),
		ProjectID:      string(tx.ProjectID),
		Settled:        tx.Settled,
		Description:    tx.Description,
		CreatedAt:      tx.CreatedAt,
	}
}

func (t Transaction) toDomain() ledger.Transaction {
	kind := ledger.Kind(t.Kind)
	raw := t.RawAmount
	if raw.IsZero() {
		raw = t.Amount
	}
	return ledger.Transaction{
		ID:             ledger.TransactionID(t.ID),
		Date:           t.Date,
		Amount:         t.Amount,
		RawAmount:      raw,
		Currency:       strings.ToUpper(strings.TrimSpace(t.Currency)),
		Kind:           kind,
		CounterpartyID: ledger.CounterpartyID(t.CounterpartyID),
		ProjectID:      ledger.ProjectID(t.ProjectID),
		Settled:        t.Settled && kind.Settleable(),
		Description:    t.Description,
		CreatedAt:      t.CreatedAt.UTC(),
	}
}
