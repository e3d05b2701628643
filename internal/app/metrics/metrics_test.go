package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/api/v1/users", "/api/v1/users"},
		{"/api/v1/users/42", "/api/v1/users/:id"},
		{"/api/items/0b9b5c7e-6a43-4c4f-9f0e-2d9b3c4a5e6f/", "/api/items/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalPath(tt.in), tt.in)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("get", "/api/v1/users/1", "200", 10*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/v1/users/2", "200", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/users/:id", "200")))
}

func TestInFlight(t *testing.T) {
	m := New()
	m.IncrementInFlight()
	m.IncrementInFlight()
	m.DecrementInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))
}

func TestRecordDiscoveryAndHandler(t *testing.T) {
	m := New()
	m.RecordDiscovery(7, 5, 1, 1)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.capabilities.WithLabelValues("discovered")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.capabilities.WithLabelValues("registered")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paneladmin_discovery_capabilities")
}
