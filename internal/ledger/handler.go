package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	"github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/finance"
	"github.com/frahmantamala/rt-lending/internal/transport"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

type ServiceAPI interface {
	AddTransaction(ctx context.Context, role user.Role, dto AddTransactionDTO) (*Transaction, error)
	SetInitialBalance(ctx context.Context, role user.Role, dto InitialBalanceDTO) (*Transaction, error)
	EditTransaction(ctx context.Context, role user.Role, id string, dto EditTransactionDTO) (*Transaction, error)
	DeleteTransaction(ctx context.Context, role user.Role, id string) error
	Transactions(filter Filter) []Transaction
	TransactionYears() []int
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	if !actor.HasPermission(user.PermissionViewLedger) {
		h.HandleServiceError(w, internal.ErrForbiddenRole)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	txns := h.Service.Transactions(filter)
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"total":        len(txns),
	})
}

func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())

	var dto AddTransactionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("AddTransaction: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.AddTransaction(r.Context(), actor.Role, dto)
	if err != nil {
		h.Logger.Warn("AddTransaction: service error", "error", err, "role", actor.Role)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("AddTransaction: row recorded",
		"transaction_id", created.ID,
		"type", created.Type,
		"category", created.Category,
		"amount", created.Amount)

	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) EditTransaction(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var dto EditTransactionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("EditTransaction: invalid request body", "error", err, "transaction_id", id)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.EditTransaction(r.Context(), actor.Role, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Service.DeleteTransaction(r.Context(), actor.Role, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetInitialBalance(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())

	var dto InitialBalanceDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("SetInitialBalance: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	row, err := h.Service.SetInitialBalance(r.Context(), actor.Role, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, row)
}

// CashSummary aggregates the filtered ledger.
func (h *Handler) CashSummary(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	if !actor.HasPermission(user.PermissionViewLedger) {
		h.HandleServiceError(w, internal.ErrForbiddenRole)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SummaryResponse{
		CashSummary: finance.Summarize(h.Service.Transactions(filter)),
		Years:       h.Service.TransactionYears(),
	})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	if t := q.Get("type"); t != "" && !strings.EqualFold(t, "all") {
		f.Type = cashflow.Type(strings.ToUpper(t))
		if !f.Type.Valid() {
			return f, internal.NewValidationFieldError("type", "type must be INCOME or EXPENSE", internal.ErrCodeInvalidType)
		}
	}
	if c := q.Get("category"); c != "" {
		f.Category = cashflow.Category(strings.ToUpper(c))
		if !f.Category.Valid() {
			return f, internal.NewValidationFieldError("category", "unknown category", internal.ErrCodeInvalidCategory)
		}
	}
	if y := q.Get("year"); y != "" && !strings.EqualFold(y, "all") {
		year, err := strconv.Atoi(y)
		if err != nil || year <= 0 {
			return f, internal.NewValidationFieldError("year", "year must be a positive number", internal.ErrCodeValidationFailed)
		}
		f.Year = year
	}
	f.LoanID = q.Get("loanId")
	return f, nil
}
