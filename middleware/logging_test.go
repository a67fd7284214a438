package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingSetsRequestID(t *testing.T) {
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestHTTPMetricsUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := mux.NewRouter()
	router.Use(NewHTTPMetrics(reg).Middleware)
	router.HandleFunc("/friendrequests/{id}/accept/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	for _, path := range []string{"/friendrequests/1/accept/", "/friendrequests/2/accept/"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	var counted float64
	for _, family := range families {
		if family.GetName() != "friendgraph_http_requests_total" {
			continue
		}
		require.Len(t, family.GetMetric(), 1, "ids must not become labels")
		metric := family.GetMetric()[0]
		for _, label := range metric.GetLabel() {
			switch label.GetName() {
			case "route":
				assert.Equal(t, "/friendrequests/{id}/accept/", label.GetValue())
			case "code":
				assert.Equal(t, "201", label.GetValue())
			}
		}
		counted = metric.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counted)
}
