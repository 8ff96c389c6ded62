package user

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/loan"
	"github.com/frahmantamala/rt-lending/internal/transport"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

type ServiceAPI interface {
	Counts() loan.Counts
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := internal.ActorFromContext(r.Context())
	h.WriteJSON(w, http.StatusOK, NewCurrentUserResponse(actor, h.Service.Counts()))
}
