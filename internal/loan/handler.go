package loan

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/finance"
	"github.com/frahmantamala/rt-lending/internal/transport"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

type ServiceAPI interface {
	CreateLoan(ctx context.Context, role user.Role, dto CreateLoanDTO) (*Loan, error)
	EditLoan(ctx context.Context, role user.Role, id string, dto EditLoanDTO) (*Loan, error)
	TransitionLoan(ctx context.Context, role user.Role, id string, status Status, date calendar.Date) (*TransitionResult, error)
	DeleteLoan(ctx context.Context, role user.Role, id string) (DeleteResult, error)
	Loans(filter Filter) []Loan
	Loan(id string) (*Loan, error)
	BorrowerLoans(name string) []Loan
	LoanYears() []int
	Counts() Counts
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

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	loans := h.Service.Loans(filter)
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"loans": loans,
		"total": len(loans),
	})
}

func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())

	var dto CreateLoanDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateLoan: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateLoan(r.Context(), actor.Role, dto)
	if err != nil {
		h.Logger.Warn("CreateLoan: service error", "error", err, "role", actor.Role)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateLoan: loan registered",
		"loan_id", created.ID,
		"borrower", created.BorrowerName,
		"amount", created.Amount)

	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	l, err := h.Service.Loan(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewBorrowerLoanView(*l))
}

func (h *Handler) EditLoan(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var dto EditLoanDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("EditLoan: invalid request body", "error", err, "loan_id", id)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.EditLoan(r.Context(), actor.Role, id, dto)
	if err != nil {
		h.Logger.Warn("EditLoan: service error", "error", err, "loan_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) TransitionLoan(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var dto TransitionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("TransitionLoan: invalid request body", "error", err, "loan_id", id)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if verr := dto.Validate(); verr != nil {
		h.HandleServiceError(w, verr)
		return
	}

	result, err := h.Service.TransitionLoan(r.Context(), actor.Role, id, dto.Status, dto.Date)
	if err != nil {
		h.Logger.Warn("TransitionLoan: rejected",
			"error", err,
			"loan_id", id,
			"role", actor.Role,
			"requested_status", dto.Status)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("TransitionLoan: status changed",
		"loan_id", id,
		"status", result.Loan.Status,
		"generated_transaction", result.Generated != nil)

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	result, err := h.Service.DeleteLoan(r.Context(), actor.Role, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Summary returns portfolio statistics over the filtered loans.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SummaryResponse{
		LoanPortfolio: finance.PortfolioStats(h.Service.Loans(filter)),
		Years:         h.Service.LoanYears(),
	})
}

func (h *Handler) WorkQueue(w http.ResponseWriter, r *http.Request) {
	q := Queue{
		AwaitingApproval:     h.Service.Loans(Filter{Status: loanDatamodel.StatusPending}),
		AwaitingConfirmation: h.Service.Loans(Filter{Status: loanDatamodel.StatusPaymentVerifying}),
		Active:               h.Service.Loans(Filter{Status: loanDatamodel.StatusApproved}),
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"queue":  q,
		"counts": h.Service.Counts(),
	})
}

// MyLoans is the borrower view, matched on the caller's name.
func (h *Handler) MyLoans(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	name := strings.TrimSpace(actor.Name)
	if name == "" {
		name = strings.TrimSpace(r.URL.Query().Get("name"))
	}
	if name == "" {
		h.HandleServiceError(w, internal.NewValidationFieldError("name", "borrower name is required", internal.ErrCodeInvalidBorrower))
		return
	}

	loans := h.Service.BorrowerLoans(name)
	views := make([]BorrowerLoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, NewBorrowerLoanView(l))
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"borrower": name,
		"loans":    views,
		"summary":  finance.PortfolioStats(loans),
	})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	if s := q.Get("status"); s != "" && !strings.EqualFold(s, "all") {
		status, err := loanDatamodel.ParseStatus(s)
		if err != nil {
			return f, internal.NewValidationFieldError("status", err.Error(), internal.ErrCodeInvalidStatus)
		}
		f.Status = status
	}
	if y := q.Get("year"); y != "" && !strings.EqualFold(y, "all") {
		year, err := strconv.Atoi(y)
		if err != nil || year <= 0 {
			return f, internal.NewValidationFieldError("year", "year must be a positive number", internal.ErrCodeValidationFailed)
		}
		f.Year = year
	}
	f.Query = strings.TrimSpace(q.Get("q"))
	return f, nil
}
