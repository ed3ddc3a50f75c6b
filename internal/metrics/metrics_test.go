package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/admin/students/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/students/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/admin/students/{id}", "204"))
	assert.Equal(t, 3.0, got)
}

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveAPI("POST", "/student", 201, 30*time.Millisecond)
	m.ObserveAPI("POST", "/student", 0, time.Second)
	m.ObserveSubmission("create", nil)
	m.ObserveSubmission("create", errors.New("x"))
	m.ObserveSubmission("create", errors.New("y"))
	m.ObserveAdminAction("delete", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiTotal.WithLabelValues("POST", "/student", "0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("create", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.adminActions.WithLabelValues("delete", "success")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New()
	m.ObserveSubmission("approve", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `matricula_submissions_total{operation="approve",outcome="success"} 1`)
}
