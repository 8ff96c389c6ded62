package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/transport"
)

// NewRateLimiter builds an in-memory limiter from a formatted rate such as
// "120-M".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit limits requests per client IP and answers 429 with the usual
// error body once the limit is reached.
func RateLimit(limiterInstance *limiter.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)

	mw := limiterstdlib.NewMiddleware(limiterInstance,
		limiterstdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			base.HandleServiceError(w, internal.NewTooManyRequestsError("Too many requests. Please try again later."))
		}),
		limiterstdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to get rate limit context", "remote_addr", r.RemoteAddr, "error", err)
			base.HandleServiceError(w, internal.NewInternalError("Internal server error during rate limit check", err))
		}),
	)

	return mw.Handler
}
