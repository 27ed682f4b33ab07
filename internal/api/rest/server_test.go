package rest_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nDmitry/spacetraveling/internal/api/rest"
)

func TestServer_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_pages_total", Help: "Test counter"})
	reg.MustRegister(counter)
	counter.Inc()

	pages := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "page "+r.URL.Path)
	})

	handler := rest.NewServer(pages, reg, "0").Handler()

	tests := []struct {
		name               string
		path               string
		requestID          string
		expectedStatusCode int
		expectedBodyPart   string
	}{
		{
			name:               "Pages are routed to the page handler",
			path:               "/post/hooks",
			expectedStatusCode: http.StatusTeapot,
			expectedBodyPart:   "page /post/hooks",
		},
		{
			name:               "Metrics come from the gatherer",
			path:               "/metrics",
			expectedStatusCode: http.StatusOK,
			expectedBodyPart:   "test_pages_total 1",
		},
		{
			name:               "Request id is propagated",
			path:               "/",
			requestID:          "abc-123",
			expectedStatusCode: http.StatusTeapot,
			expectedBodyPart:   "page /",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)

			if tt.requestID != "" {
				req.Header.Set("X-Request-ID", tt.requestID)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatusCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBodyPart)

			requestID := rec.Header().Get("X-Request-ID")
			require.NotEmpty(t, requestID)

			if tt.requestID != "" {
				assert.Equal(t, tt.requestID, requestID)
			}
		})
	}
}
