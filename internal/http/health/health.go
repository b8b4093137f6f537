package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named readiness dependency. The name shows up in logs and in
// the 503 body so an operator can tell a store outage from a cache outage.
type Check struct {
	Name   string
	Pinger Pinger
}

// New builds the liveness and readiness endpoints. Liveness only says the
// process is up; readiness pings every registered dependency within opTimeout
// and fails on the first one that does not answer.
func New(log *slog.Logger, opTimeout time.Duration, checks ...Check) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), opTimeout)
		defer cancel()

		for _, c := range checks {
			if c.Pinger == nil {
				continue
			}
			if err := c.Pinger.Ping(ctx); err != nil {
				if log != nil {
					log.Warn("readiness failed", "dependency", c.Name, "err", err)
				}
				http.Error(w, "not ready: "+c.Name, http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return r
}
