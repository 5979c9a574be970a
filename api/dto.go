/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

NUMBERS:
  Quantities and money are decimals. Responses carry them as JSON strings
  ("12.5"); requests accept a string or a number.

VALIDATION:
  Request shape (required fields, enums) is checked with validator tags via
  generic.ValidateStruct. Business rules stay in the services.

SEE ALSO:
  - handlers.go, ledger.go: Use these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// =============================================================================
// INVENTORY
// =============================================================================

type ItemDTO struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit"`
	Kind             string          `json:"kind"`
	OnHand           decimal.Decimal `json:"on_hand"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	Critical         bool            `json:"critical"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

type CreateItemRequest struct {
	Name             string          `json:"name" validate:"required,max=200"`
	Unit             string          `json:"unit" validate:"required,max=20"`
	Kind             string          `json:"kind" validate:"oneof=raw_material semi_finished finished"`
	OnHand           decimal.Decimal `json:"on_hand"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
}

type UpdateItemRequest struct {
	Name             string          `json:"name" validate:"required,max=200"`
	Unit             string          `json:"unit" validate:"required,max=20"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
}

type RestockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type RecipeLineDTO struct {
	ComponentID     string          `json:"component_id" validate:"required"`
	ComponentName   string          `json:"component_name,omitempty"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
}

type SetRecipeRequest struct {
	Components []RecipeLineDTO `json:"components" validate:"dive"`
}

type RecipeDTO struct {
	ProductID  string          `json:"product_id"`
	Components []RecipeLineDTO `json:"components"`
}

type ProductionRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type DeltaDTO struct {
	ItemID      string          `json:"item_id"`
	ItemName    string          `json:"item_name"`
	Change      decimal.Decimal `json:"change"`
	OnHandAfter decimal.Decimal `json:"on_hand_after"`
}

type ProductionResponse struct {
	RunID    string          `json:"run_id"`
	Product  ItemDTO         `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
	Consumed []DeltaDTO      `json:"consumed"`
}

type ShortageDTO struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Missing   bool            `json:"missing,omitempty"`
}

type FeasibilityDTO struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Feasible  bool            `json:"feasible"`
	Shortages []ShortageDTO   `json:"shortages,omitempty"`
}

type AuditEntryDTO struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Category  string `json:"category"`
}

// =============================================================================
// LEDGER
// =============================================================================

type CounterpartyDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

type CounterpartyRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"max=40"`
	Note  string `json:"note"`
}

type ProjectDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

type ProjectRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Status string `json:"status" validate:"omitempty,oneof=active completed"`
	Note   string `json:"note"`
}

type TransactionDTO struct {
	ID             string          `json:"id"`
	Date           *generic.Date   `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	RawAmount      decimal.Decimal `json:"raw_amount"`
	Currency       string          `json:"currency"`
	Kind           string          `json:"kind"`
	CounterpartyID string          `json:"counterparty_id"`
	ProjectID      string          `json:"project_id,omitempty"`
	Settled        bool            `json:"settled"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

type TransactionRequest struct {
	Date           *generic.Date   `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	RawAmount      decimal.Decimal `json:"raw_amount"`
	Currency       string          `json:"currency" validate:"required,max=8"`
	Kind           string          `json:"kind" validate:"oneof=collection payment payable receivable check"`
	CounterpartyID string          `json:"counterparty_id" validate:"required"`
	ProjectID      string          `json:"project_id"`
	Settled        bool            `json:"settled"`
	Description    string          `json:"description"`
}

// UpdateTransactionRequest has no settled field: settlement only moves
// through the settle endpoint.
type UpdateTransactionRequest struct {
	Date           *generic.Date   `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	RawAmount      decimal.Decimal `json:"raw_amount"`
	Currency       string          `json:"currency" validate:"required,max=8"`
	Kind           string          `json:"kind" validate:"oneof=collection payment payable receivable check"`
	CounterpartyID string          `json:"counterparty_id" validate:"required"`
	ProjectID      string          `json:"project_id"`
	Description    string          `json:"description"`
}

type SettleRequest struct {
	Settled *bool `json:"settled" validate:"required"`
}

type CounterpartyBalanceDTO struct {
	CounterpartyID        string          `json:"counterparty_id"`
	Name                  string          `json:"name"`
	Payables              decimal.Decimal `json:"payables"`
	Payments              decimal.Decimal `json:"payments"`
	SettledChecks         decimal.Decimal `json:"settled_checks"`
	PendingChecks         decimal.Decimal `json:"pending_checks"`
	Receivables           decimal.Decimal `json:"receivables"`
	Collections           decimal.Decimal `json:"collections"`
	OutstandingPayable    decimal.Decimal `json:"outstanding_payable"`
	OutstandingReceivable decimal.Decimal `json:"outstanding_receivable"`
}

type ProjectSummaryDTO struct {
	ProjectID string          `json:"project_id"`
	Inflow    decimal.Decimal `json:"inflow"`
	Outflow   decimal.Decimal `json:"outflow"`
	Net       decimal.Decimal `json:"net"`
}

type UpcomingDTO struct {
	From             generic.Date     `json:"from"`
	To               generic.Date     `json:"to"`
	PayableLike      []TransactionDTO `json:"payable_like"`
	Receivable       []TransactionDTO `json:"receivable"`
	TotalPayableLike decimal.Decimal  `json:"total_payable_like"`
	TotalReceivable  decimal.Decimal  `json:"total_receivable"`
}

type ReportDTO struct {
	AsOf                       generic.Date             `json:"as_of"`
	Counterparties             []CounterpartyBalanceDTO `json:"counterparties"`
	Projects                   []ProjectSummaryDTO      `json:"projects"`
	TotalOutstandingPayable    decimal.Decimal          `json:"total_outstanding_payable"`
	TotalOutstandingReceivable decimal.Decimal          `json:"total_outstanding_receivable"`
	UnsettledChecks            []TransactionDTO         `json:"unsettled_checks"`
	TotalUnsettledChecks       decimal.Decimal          `json:"total_unsettled_checks"`
	TotalPaid                  decimal.Decimal          `json:"total_paid"`
	TotalCollected             decimal.Decimal          `json:"total_collected"`
	Upcoming                   UpcomingDTO              `json:"upcoming"`
	NetPosition                decimal.Decimal          `json:"net_position"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string        `json:"error"`
	Details   string        `json:"details,omitempty"`
	Field     string        `json:"field,omitempty"`
	Shortages []ShortageDTO `json:"shortages,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toItemDTO(it inventory.StockItem) ItemDTO {
	return ItemDTO{
		ID:               string(it.ID),
		Name:             it.Name,
		Unit:             it.Unit,
		Kind:             string(it.Kind),
		OnHand:           it.OnHand,
		MinimumThreshold: it.MinimumThreshold,
		Critical:         it.IsCritical(),
		CreatedAt:        formatTime(it.CreatedAt),
		UpdatedAt:        formatTime(it.UpdatedAt),
	}
}

func toItemDTOs(items []inventory.StockItem) []ItemDTO {
	dtos := make([]ItemDTO, len(items))
	for i, it := range items {
		dtos[i] = toItemDTO(it)
	}
	return dtos
}

func toShortageDTOs(shortages []inventory.Shortage) []ShortageDTO {
	dtos := make([]ShortageDTO, len(shortages))
	for i, s := range shortages {
		dtos[i] = ShortageDTO{
			ItemID:    string(s.ItemID),
			ItemName:  s.ItemName,
			Required:  s.Required,
			Available: s.Available,
			Missing:   s.Missing(),
		}
	}
	return dtos
}

func toAuditDTOs(entries []generic.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:        e.ID,
			Timestamp: formatTime(e.Timestamp),
			Message:   e.Message,
			Category:  string(e.Category),
		}
	}
	return dtos
}

func toCounterpartyDTO(c ledger.Counterparty) CounterpartyDTO {
	return CounterpartyDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Phone:     c.Phone,
		Note:      c.Note,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func toProjectDTO(p ledger.Project) ProjectDTO {
	return ProjectDTO{
		ID:        string(p.ID),
		Name:      p.Name,
		Status:    string(p.Status),
		Note:      p.Note,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
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
		CreatedAt:      formatTime(tx.CreatedAt),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func (r TransactionRequest) toDomain(id ledger.TransactionID) ledger.Transaction {
	return ledger.Transaction{
		ID:             id,
		Date:           r.Date,
		Amount:         r.Amount,
		RawAmount:      r.RawAmount,
		Currency:       r.Currency,
		Kind:           ledger.Kind(r.Kind),
		CounterpartyID: ledger.CounterpartyID(r.CounterpartyID),
		ProjectID:      ledger.ProjectID(r.ProjectID),
		Settled:        r.Settled,
		Description:    r.Description,
	}
}

func (r UpdateTransactionRequest) toDomain(id ledger.TransactionID) ledger.Transaction {
	return ledger.Transaction{
		ID:             id,
		Date:           r.Date,
		Amount:         r.Amount,
		RawAmount:      r.RawAmount,
		Currency:       r.Currency,
		Kind:           ledger.Kind(r.Kind),
		CounterpartyID: ledger.CounterpartyID(r.CounterpartyID),
		ProjectID:      ledger.ProjectID(r.ProjectID),
		Description:    r.Description,
	}
}

func toReportDTO(r ledger.Report) ReportDTO {
	dto := ReportDTO{
		AsOf:                       r.AsOf,
		Counterparties:             make([]CounterpartyBalanceDTO, len(r.Counterparties)),
		Projects:                   make([]ProjectSummaryDTO, len(r.Projects)),
		TotalOutstandingPayable:    r.TotalOutstandingPayable,
		TotalOutstandingReceivable: r.TotalOutstandingReceivable,
		UnsettledChecks:            toTransactionDTOs(r.UnsettledChecks),
		TotalUnsettledChecks:       r.TotalUnsettledChecks,
		TotalPaid:                  r.TotalPaid,
		TotalCollected:             r.TotalCollected,
		Upcoming: UpcomingDTO{
			From:             r.Upcoming.From,
			To:               r.Upcoming.To,
			PayableLike:      toTransactionDTOs(r.Upcoming.PayableLike),
			Receivable:       toTransactionDTOs(r.Upcoming.Receivable),
			TotalPayableLike: r.Upcoming.TotalPayableLike,
			TotalReceivable:  r.Upcoming.TotalReceivable,
		},
		NetPosition: r.NetPosition,
	}
	for i, b := range r.Counterparties {
		dto.Counterparties[i] = CounterpartyBalanceDTO{
			CounterpartyID:        string(b.CounterpartyID),
			Name:                  b.Name,
			Payables:              b.Payables,
			Payments:              b.Payments,
			SettledChecks:         b.SettledChecks,
			PendingChecks:         b.PendingChecks,
			Receivables:           b.Receivables,
			Collections:           b.Collections,
			OutstandingPayable:    b.OutstandingPayable,
			OutstandingReceivable: b.OutstandingReceivable,
		}
	}
	for i, p := range r.Projects {
		dto.Projects[i] = ProjectSummaryDTO{
			ProjectID: string(p.ProjectID),
			Inflow:    p.Inflow,
			Outflow:   p.Outflow,
			Net:       p.Net,
		}
	}
	return dto
}
