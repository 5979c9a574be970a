package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// =============================================================================
// COUNTERPARTY HANDLERS
// =============================================================================

func (h *Handler) ListCounterparties(w http.ResponseWriter, r *http.Request) {
	cps, err := h.Ledger.Counterparties(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list counterparties", err)
		return
	}
	dtos := make([]CounterpartyDTO, len(cps))
	for i, c := range cps {
		dtos[i] = toCounterpartyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetCounterparty(w http.ResponseWriter, r *http.Request) {
	c, err := h.Ledger.Counterparty(r.Context(), ledger.CounterpartyID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get counterparty", err)
		return
	}
	writeJSON(w, http.StatusOK, toCounterpartyDTO(c))
}

func (h *Handler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	var req CounterpartyRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	c, err := h.Ledger.AddCounterparty(r.Context(), ledger.Counterparty{Name: req.Name, Phone: req.Phone, Note: req.Note})
	if err != nil {
		h.writeDomainError(w, "Failed to create counterparty", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCounterpartyDTO(c))
}

func (h *Handler) UpdateCounterparty(w http.ResponseWriter, r *http.Request) {
	var req CounterpartyRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	c, err := h.Ledger.UpdateCounterparty(r.Context(), ledger.Counterparty{
		ID:    ledger.CounterpartyID(chi.URLParam(r, "id")),
		Name:  req.Name,
		Phone: req.Phone,
		Note:  req.Note,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update counterparty", err)
		return
	}
	writeJSON(w, http.StatusOK, toCounterpartyDTO(c))
}

// DeleteCounterparty is refused (409) while transactions reference it.
func (h *Handler) DeleteCounterparty(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteCounterparty(r.Context(), ledger.CounterpartyID(chi.URLParam(r, "id"))); err != nil {
		h.writeDomainError(w, "Failed to delete counterparty", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Ledger.Projects(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list projects", err)
		return
	}
	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Ledger.Project(r.Context(), ledger.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, err := h.Ledger.AddProject(r.Context(), ledger.Project{
		Name:   req.Name,
		Status: ledger.ProjectStatus(req.Status),
		Note:   req.Note,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(p))
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, err := h.Ledger.UpdateProject(r.Context(), ledger.Project{
		ID:     ledger.ProjectID(chi.URLParam(r, "id")),
		Name:   req.Name,
		Status: ledger.ProjectStatus(req.Status),
		Note:   req.Note,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

// DeleteProject is refused (409) while transactions reference it.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteProject(r.Context(), ledger.ProjectID(chi.URLParam(r, "id"))); err != nil {
		h.writeDomainError(w, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProjectReport aggregates one project's transactions.
// GET /api/projects/{id}/report
func (h *Handler) ProjectReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Ledger.ProjectReport(r.Context(), ledger.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to build project report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions filters by ?counterparty_id=, ?project_id= and repeated ?kind=.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.TransactionFilter{
		CounterpartyID: ledger.CounterpartyID(q.Get("counterparty_id")),
		ProjectID:      ledger.ProjectID(q.Get("project_id")),
	}
	for _, k := range q["kind"] {
		kind := ledger.Kind(k)
		if !kind.Valid() {
			h.writeDomainError(w, "Invalid kind", generic.Invalid("kind", "unknown kind %q", k))
			return
		}
		filter.Kinds = append(filter.Kinds, kind)
	}

	txs, err := h.Ledger.Transactions(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.Transaction(r.Context(), transactionID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	tx, err := h.Ledger.AddTransaction(r.Context(), req.toDomain(""))
	if err != nil {
		h.writeDomainError(w, "Failed to record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	tx, err := h.Ledger.UpdateTransaction(r.Context(), req.toDomain(transactionID(r)))
	if err != nil {
		h.writeDomainError(w, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteTransaction(r.Context(), transactionID(r)); err != nil {
		h.writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettleTransaction is the confirmed Pending <-> Settled toggle.
// POST /api/transactions/{id}/settle {"settled": true}
func (h *Handler) SettleTransaction(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	tx, err := h.Ledger.SetSettled(r.Context(), transactionID(r), *req.Settled)
	if err != nil {
		h.writeDomainError(w, "Failed to change settlement", err)
		return
	}
	h.Metrics.settlement(tx.Settled)
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// Report returns balances, unsettled checks and the upcoming-due window.
// GET /api/ledger/report?window=10
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	window := 0
	if s := r.URL.Query().Get("window"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.writeDomainError(w, "Invalid window", generic.Invalid("window", "must be a positive number of days"))
			return
		}
		window = n
	}
	rep, err := h.Ledger.Report(r.Context(), window)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

func transactionID(r *http.Request) ledger.TransactionID {
	return ledger.TransactionID(chi.URLParam(r, "id"))
}
