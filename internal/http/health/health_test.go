package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func up() pingerFunc   { return func(context.Context) error { return nil } }
func down() pingerFunc { return func(context.Context) error { return errors.New("unreachable") } }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLivenessIgnoresDependencies(t *testing.T) {
	h := New(slog.New(slog.DiscardHandler), time.Second, Check{Name: "store", Pinger: down()})
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
}

func TestReadinessChecksEveryDependency(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	h := New(log, time.Second,
		Check{Name: "store", Pinger: up()},
		Check{Name: "cache", Pinger: up()},
	)
	assert.Equal(t, http.StatusOK, get(t, h, "/readyz").Code)

	h = New(log, time.Second,
		Check{Name: "store", Pinger: up()},
		Check{Name: "cache", Pinger: down()},
	)
	rec := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "cache", "the 503 body names the failing dependency")
}
