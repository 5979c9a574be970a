/*
handlers.go - HTTP API handlers for stock, production and backups

PURPOSE:
  Exposes the inventory engine, the cash-flow ledger and backups via REST.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain services.

ENDPOINTS:
  Items:
    GET    /api/items                      List items (name order)
    POST   /api/items                      Create item
    GET    /api/items/critical             Raw materials at/below threshold
    GET    /api/items/{id}                 Get item
    PUT    /api/items/{id}                 Rename, change unit or threshold
    DELETE /api/items/{id}                 Remove (refused while referenced)
    POST   /api/items/{id}/restock         Add stock
    GET    /api/items/{id}/recipe          Get recipe
    PUT    /api/items/{id}/recipe          Replace recipe
    GET    /api/items/{id}/feasibility     ?quantity= dry-run of production

  Production:
    GET    /api/ingredients                Raw then semi-finished items
    POST   /api/production                 Apply a production run
    GET    /api/audit                      ?category=&limit= audit log

  Ledger (ledger.go):
    /api/counterparties, /api/projects, /api/transactions, /api/ledger/report

  Backup:
    GET    /api/backup                     Export everything
    POST   /api/backup                     Restore (all-or-nothing)

  Scenarios (scenarios.go):
    GET    /api/scenarios                  List demo datasets
    POST   /api/scenarios/load             Load one into an empty database

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Insufficient stock, referential integrity, duplicate id
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The server is meant for a single workshop LAN.

SEE ALSO:
  - dto.go: Request/response data structures
  - ledger.go: Ledger handlers
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Dogaatademir/Opsiron-sub001/backup"
	"github.com/Dogaatademir/Opsiron-sub001/config"
	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// maxBodyBytes bounds request bodies; backups are the largest.
const maxBodyBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Inventory *inventory.Service
	Ledger    *ledger.Service
	Backup    *backup.Service
	Metrics   *Metrics // optional
	Log       logrus.FieldLogger
	Clock     generic.Clock
}

// NewHandler creates a new handler. metrics may be nil.
func NewHandler(inv *inventory.Service, led *ledger.Service, bk *backup.Service, metrics *Metrics, log logrus.FieldLogger) *Handler {
	return &Handler{
		Inventory: inv,
		Ledger:    led,
		Backup:    bk,
		Metrics:   metrics,
		Log:       log.WithField("module", "api"),
		Clock:     generic.SystemClock{},
	}
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// ListItems returns all items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.Items(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// CriticalItems returns raw materials at or below their minimum threshold.
func (h *Handler) CriticalItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.CriticalItems(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list critical items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// Ingredients returns the items a recipe may consume.
func (h *Handler) Ingredients(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.Ingredients(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list ingredients", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// GetItem returns one item.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Inventory.Item(r.Context(), itemID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// CreateItem creates an item.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	item, err := h.Inventory.AddItem(r.Context(), inventory.NewItem{
		Name:             req.Name,
		Unit:             req.Unit,
		Kind:             inventory.Kind(req.Kind),
		OnHand:           req.OnHand,
		MinimumThreshold: req.MinimumThreshold,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(item))
}

// UpdateItem edits name, unit and threshold.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	item, err := h.Inventory.UpdateItem(r.Context(), itemID(r), inventory.ItemUpdate{
		Name:             req.Name,
		Unit:             req.Unit,
		MinimumThreshold: req.MinimumThreshold,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// DeleteItem removes an item that nothing references.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.RemoveItem(r.Context(), itemID(r)); err != nil {
		h.writeDomainError(w, "Failed to delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restock adds quantity to an item.
// POST /api/items/{id}/restock
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	item, err := h.Inventory.Restock(r.Context(), itemID(r), req.Quantity)
	if err != nil {
		h.writeDomainError(w, "Failed to restock", err)
		return
	}
	h.Metrics.restocked()
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// =============================================================================
// RECIPE HANDLERS
// =============================================================================

// GetRecipe returns the recipe of a producible item.
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := itemID(r)
	lines, err := h.Inventory.Recipe(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get recipe", err)
		return
	}
	items, err := h.Inventory.Items(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to get recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTO(id, lines, inventory.Index(items)))
}

// SetRecipe replaces the recipe of a producible item.
func (h *Handler) SetRecipe(w http.ResponseWriter, r *http.Request) {
	var req SetRecipeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	components := make([]inventory.ComponentQuantity, len(req.Components))
	for i, c := range req.Components {
		components[i] = inventory.ComponentQuantity{
			ComponentID:     inventory.ItemID(c.ComponentID),
			QuantityPerUnit: c.QuantityPerUnit,
		}
	}

	ctx := r.Context()
	id := itemID(r)
	lines, err := h.Inventory.SetRecipe(ctx, id, components)
	if err != nil {
		h.writeDomainError(w, "Failed to set recipe", err)
		return
	}
	items, err := h.Inventory.Items(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to set recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTO(id, lines, inventory.Index(items)))
}

func toRecipeDTO(product inventory.ItemID, lines []inventory.RecipeLine, names map[inventory.ItemID]inventory.StockItem) RecipeDTO {
	dto := RecipeDTO{ProductID: string(product), Components: make([]RecipeLineDTO, len(lines))}
	for i, l := range lines {
		dto.Components[i] = RecipeLineDTO{
			ComponentID:     string(l.ComponentID),
			ComponentName:   names[l.ComponentID].Name,
			QuantityPerUnit: l.QuantityPerUnit,
		}
	}
	return dto
}

// =============================================================================
// PRODUCTION HANDLERS
// =============================================================================

// CheckFeasibility is a dry run: 200 with feasible=false and the shortages
// when stock does not cover the run.
// GET /api/items/{id}/feasibility?quantity=3
func (h *Handler) CheckFeasibility(w http.ResponseWriter, r *http.Request) {
	qty, err := generic.ParseDecimal("quantity", r.URL.Query().Get("quantity"))
	if err != nil {
		h.writeDomainError(w, "Invalid quantity", err)
		return
	}

	id := itemID(r)
	dto := FeasibilityDTO{ProductID: string(id), Quantity: qty, Feasible: true}
	err = h.Inventory.CheckFeasibility(r.Context(), id, qty)
	var short *inventory.InsufficientStockError
	switch {
	case errors.As(err, &short):
		dto.Feasible = false
		dto.Shortages = toShortageDTOs(short.Shortages)
	case err != nil:
		h.writeDomainError(w, "Failed to check feasibility", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// Produce applies a production run.
// POST /api/production
func (h *Handler) Produce(w http.ResponseWriter, r *http.Request) {
	var req ProductionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.Inventory.Produce(r.Context(), inventory.ItemID(req.ProductID), req.Quantity)
	if err != nil {
		if errors.Is(err, generic.ErrInsufficientStock) {
			h.Metrics.production("insufficient_stock")
		} else {
			h.Metrics.production("rejected")
		}
		h.writeDomainError(w, "Production rejected", err)
		return
	}
	h.Metrics.production("applied")

	consumed := make([]DeltaDTO, len(res.Consumed))
	for i, d := range res.Consumed {
		consumed[i] = DeltaDTO{
			ItemID:      string(d.Item.ID),
			ItemName:    d.Item.Name,
			Change:      d.Change,
			OnHandAfter: d.After(),
		}
	}
	writeJSON(w, http.StatusOK, ProductionResponse{
		RunID:    res.RunID,
		Product:  toItemDTO(res.Product),
		Quantity: res.Quantity,
		Consumed: consumed,
	})
}

// AuditLog returns audit entries, newest first.
// GET /api/audit?category=production&category=restock&limit=50
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	var filter generic.AuditFilter
	for _, c := range r.URL.Query()["category"] {
		cat := generic.AuditCategory(c)
		if !cat.Valid() {
			h.writeDomainError(w, "Invalid category", generic.Invalid("category", "unknown category %q", c))
			return
		}
		filter.Categories = append(filter.Categories, cat)
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeDomainError(w, "Invalid limit", generic.Invalid("limit", "must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	entries, err := h.Inventory.AuditLog(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to read audit log", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(entries))
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ExportBackup streams the whole dataset as a JSON attachment.
// GET /api/backup
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Backup.Export(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to export backup", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"opsiron-backup-%s.json\"", doc.ExportedAt.UTC().Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	if err := backup.Encode(w, doc); err != nil {
		h.Log.WithError(err).Warn("backup export interrupted")
	}
}

// ImportBackup restores a document produced by ExportBackup.
// POST /api/backup
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.Metrics.backupImport("invalid")
		h.writeDomainError(w, "Invalid backup", err)
		return
	}
	sum, err := h.Backup.Import(r.Context(), doc)
	if err != nil {
		h.Metrics.backupImport("rejected")
		h.writeDomainError(w, "Failed to import backup", err)
		return
	}
	h.Metrics.backupImport("applied")
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// HELPERS
// =============================================================================

func itemID(r *http.Request) inventory.ItemID {
	return inventory.ItemID(chi.URLParam(r, "id"))
}

// decodeRequest reads a JSON body into dst and validates its tags. On failure
// it writes a 400 and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := generic.ValidateStruct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrInsufficientStock),
		errors.Is(err, generic.ErrReferentialIntegrity),
		errors.Is(err, generic.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		config.LogError(h.Log, "api", message, err)
		writeError(w, status, message, err)
		return
	}

	resp := ErrorResponse{Error: message, Details: err.Error()}
	var ve *generic.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	var short *inventory.InsufficientStockError
	if errors.As(err, &short) {
		resp.Shortages = toShortageDTOs(short.Shortages)
	}
	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: "Invalid request", Details: err.Error()}
	var ve *generic.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
