/*
scenarios.go - Demo data loaders for trials and demonstrations

PURPOSE:
  Provides pre-built datasets that populate an empty database with realistic
  data. Each scenario goes through the services, so it is validated, audited
  and logged exactly like user input.

AVAILABLE SCENARIOS:
  furniture-workshop:  raw materials, a semi-finished frame, two finished
                       goods with recipes, one low-stock material
  construction-ledger: suppliers and clients, two projects, payables,
                       payments, receivables and checks due soon

HOW SCENARIOS WORK:
  1. Refuse if the affected area already has data (409)
  2. Create entities through inventory.Service / ledger.Service
  3. Dates are relative to today so the upcoming window is populated

USAGE VIA API:
  GET  /api/scenarios
  POST /api/scenarios/load
  {"scenario_id": "furniture-workshop"}

SEE ALSO:
  - handlers.go: Handler
*/
package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "furniture-workshop",
		Name:        "Furniture Workshop",
		Description: "Raw materials, a frame sub-assembly, tables and chairs with recipes",
		Category:    "inventory",
	},
	{
		ID:          "construction-ledger",
		Name:        "Construction Ledger",
		Description: "Suppliers, clients, two projects and checks falling due this week",
		Category:    "ledger",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario into an empty area.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "furniture-workshop":
		err = h.loadWorkshopScenario(ctx)
	case "construction-ledger":
		err = h.loadConstructionScenario(ctx)
	default:
		err = &generic.NotFoundError{Entity: "scenario", ID: req.ScenarioID}
	}
	if err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// FURNITURE WORKSHOP
// =============================================================================

func (h *Handler) loadWorkshopScenario(ctx context.Context) error {
	existing, err := h.Inventory.Items(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return &generic.ConflictError{Entity: "scenario", ID: "furniture-workshop"}
	}

	add := func(name, unit string, kind inventory.Kind, onHand, threshold string) (inventory.StockItem, error) {
		return h.Inventory.AddItem(ctx, inventory.NewItem{
			Name:             name,
			Unit:             unit,
			Kind:             kind,
			OnHand:           decimal.RequireFromString(onHand),
			MinimumThreshold: decimal.RequireFromString(threshold),
		})
	}

	wood, err := add("Oak Plank", "m", inventory.KindRawMaterial, "40", "10")
	if err != nil {
		return err
	}
	glue, err := add("Wood Glue", "l", inventory.KindRawMaterial, "1.5", "2")
	if err != nil {
		return err
	}
	screws, err := add("Screw 4x40", "pcs", inventory.KindRawMaterial, "500", "100")
	if err != nil {
		return err
	}
	frame, err := add("Table Frame", "pcs", inventory.KindSemiFinished, "2", "0")
	if err != nil {
		return err
	}
	table, err := add("Dining Table", "pcs", inventory.KindFinished, "0", "0")
	if err != nil {
		return err
	}
	chair, err := add("Chair", "pcs", inventory.KindFinished, "4", "0")
	if err != nil {
		return err
	}

	recipes := []struct {
		product    inventory.ItemID
		components []inventory.ComponentQuantity
	}{
		{frame.ID, []inventory.ComponentQuantity{
			{ComponentID: wood.ID, QuantityPerUnit: decimal.RequireFromString("6")},
			{ComponentID: screws.ID, QuantityPerUnit: decimal.RequireFromString("16")},
			{ComponentID: glue.ID, QuantityPerUnit: decimal.RequireFromString("0.1")},
		}},
		{table.ID, []inventory.ComponentQuantity{
			{ComponentID: frame.ID, QuantityPerUnit: decimal.RequireFromString("1")},
			{ComponentID: wood.ID, QuantityPerUnit: decimal.RequireFromString("4")},
			{ComponentID: glue.ID, QuantityPerUnit: decimal.RequireFromString("0.2")},
		}},
		{chair.ID, []inventory.ComponentQuantity{
			{ComponentID: wood.ID, QuantityPerUnit: decimal.RequireFromString("2.5")},
			{ComponentID: screws.ID, QuantityPerUnit: decimal.RequireFromString("12")},
		}},
	}
	for _, rc := range recipes {
		if _, err := h.Inventory.SetRecipe(ctx, rc.product, rc.components); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// CONSTRUCTION LEDGER
// =============================================================================

func (h *Handler) loadConstructionScenario(ctx context.Context) error {
	existing, err := h.Ledger.Counterparties(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return &generic.ConflictError{Entity: "scenario", ID: "construction-ledger"}
	}

	today := generic.Today(h.Clock)
	in := func(days int) *generic.Date {
		d := today.AddDays(days)
		return &d
	}

	steel, err := h.Ledger.AddCounterparty(ctx, ledger.Counterparty{Name: "Anadolu Steel", Phone: "+90 212 555 0101"})
	if err != nil {
		return err
	}
	concrete, err := h.Ledger.AddCounterparty(ctx, ledger.Counterparty{Name: "Beton Concrete"})
	if err != nil {
		return err
	}
	client, err := h.Ledger.AddCounterparty(ctx, ledger.Counterparty{Name: "Harbor Holdings", Note: "main client"})
	if err != nil {
		return err
	}

	tower, err := h.Ledger.AddProject(ctx, ledger.Project{Name: "Harbor Tower"})
	if err != nil {
		return err
	}
	villa, err := h.Ledger.AddProject(ctx, ledger.Project{Name: "Hillside Villa", Status: ledger.ProjectCompleted})
	if err != nil {
		return err
	}

	txs := []ledger.Transaction{
		{Kind: ledger.KindPayable, Amount: decimal.NewFromInt(120000), CounterpartyID: steel.ID, ProjectID: tower.ID, Date: in(5), Description: "rebar delivery"},
		{Kind: ledger.KindPayment, Amount: decimal.NewFromInt(40000), CounterpartyID: steel.ID, ProjectID: tower.ID, Date: in(-20)},
		{Kind: ledger.KindCheck, Amount: decimal.NewFromInt(30000), CounterpartyID: steel.ID, ProjectID: tower.ID, Date: in(3), Description: "check #1042"},
		{Kind: ledger.KindCheck, Amount: decimal.NewFromInt(15000), CounterpartyID: concrete.ID, ProjectID: villa.ID, Date: in(-2), Settled: true},
		{Kind: ledger.KindPayable, Amount: decimal.NewFromInt(15000), CounterpartyID: concrete.ID, ProjectID: villa.ID},
		{Kind: ledger.KindReceivable, Amount: decimal.NewFromInt(250000), CounterpartyID: client.ID, ProjectID: tower.ID, Date: in(8)},
		{Kind: ledger.KindCollection, Amount: decimal.NewFromInt(100000), CounterpartyID: client.ID, ProjectID: tower.ID, Date: in(-30)},
	}
	for _, tx := range txs {
		tx.Currency = "TRY"
		if _, err := h.Ledger.AddTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}
