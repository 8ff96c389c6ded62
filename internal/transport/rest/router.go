package rest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/ulule/limiter/v3"

	"github.com/frahmantamala/rt-lending/api"
	"github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/ledger"
	"github.com/frahmantamala/rt-lending/internal/loan"
	"github.com/frahmantamala/rt-lending/internal/transport/middleware"
	"github.com/frahmantamala/rt-lending/internal/transport/swagger"
	userHandlers "github.com/frahmantamala/rt-lending/internal/user"
)

type Options struct {
	DB               *sql.DB
	Queues           []QueueReporter
	AllowedOrigins   string
	RateLimiter      *limiter.Limiter
	ValidateRequests bool
	RequestLogging   bool
}

func RegisterAllRoutes(router *chi.Mux, opts Options, userHandler *userHandlers.Handler, loanHandler *loan.Handler, ledgerHandler *ledger.Handler, logger *slog.Logger) error {
	healthHandler := NewHealthHandler(opts.DB, opts.Queues...)

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.RequestLogging {
		router.Use(middleware.LoggingMiddleware(logger))
	}
	if opts.RateLimiter != nil {
		router.Use(middleware.RateLimit(opts.RateLimiter, logger))
	}

	// Serve OpenAPI spec and Swagger UI at root (outside API prefix)
	router.Get("/openapi.yml", swagger.SpecHandler(api.Spec))
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	var validate func(next chi.Router)
	if opts.ValidateRequests {
		doc, err := middleware.LoadOpenAPI(context.Background(), api.Spec)
		if err != nil {
			return err
		}
		mw, err := middleware.ValidateRequests(doc, logger)
		if err != nil {
			return fmt.Errorf("failed to build request validator: %w", err)
		}
		validate = func(r chi.Router) { r.Use(mw) }
	}

	// Mount API under /api/v1 to match the OpenAPI paths
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(ar chi.Router) {
			ar.Use(middleware.ActorContext(logger))
			if validate != nil {
				validate(ar)
			}

			// Current caller
			if userHandler != nil {
				ar.Get("/users/me", userHandler.GetCurrentUser)
			}

			if loanHandler != nil {
				ar.Route("/loans", func(lr chi.Router) {
					lr.Get("/", loanHandler.ListLoans)
					lr.Get("/summary", loanHandler.Summary)
					lr.Get("/{id}", loanHandler.GetLoan)

					lr.Group(func(qr chi.Router) {
						qr.Use(middleware.RequirePermissions(logger,
							user.PermissionApproveLoans,
							user.PermissionConfirmPayment,
							user.PermissionReceivePayment))
						qr.Get("/queue", loanHandler.WorkQueue)
					})

					// role rules per operation live in the store; only the
					// obviously admin-only routes are gated here
					lr.Group(func(mr chi.Router) {
						mr.Use(middleware.RequirePermissions(logger, user.PermissionManageLoans))
						mr.Post("/", loanHandler.CreateLoan)
						mr.Patch("/{id}", loanHandler.EditLoan)
						mr.Delete("/{id}", loanHandler.DeleteLoan)
					})

					lr.Post("/{id}/transitions", loanHandler.TransitionLoan)
				})

				ar.Get("/me/loans", loanHandler.MyLoans)
			}

			if ledgerHandler != nil {
				ar.Route("/transactions", func(tr chi.Router) {
					tr.Get("/", ledgerHandler.ListTransactions)

					tr.Group(func(mr chi.Router) {
						mr.Use(middleware.RequirePermissions(logger, user.PermissionManageCash))
						mr.Post("/", ledgerHandler.AddTransaction)
						mr.Patch("/{id}", ledgerHandler.EditTransaction)
						mr.Delete("/{id}", ledgerHandler.DeleteTransaction)
					})
				})

				ar.Route("/cash", func(cr chi.Router) {
					cr.Get("/summary", ledgerHandler.CashSummary)
					cr.With(middleware.RequirePermissions(logger, user.PermissionManageCash)).
						Put("/initial-balance", ledgerHandler.SetInitialBalance)
				})
			}
		})
	})

	return nil
}
