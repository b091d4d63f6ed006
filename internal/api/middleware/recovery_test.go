package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/roadstop/roadstop/internal/api/middleware"
)

func TestRecovery_ReturnsProblem(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	router := tripRouter(func(http.ResponseWriter, *http.Request) {
		panic("nil stop list")
	}, middleware.RequestID, middleware.Recovery(log))

	req := httptest.NewRequest(http.MethodGet, "/v1/trips/trip-9/candidates", http.NoBody)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), rec.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, rec.Body.String(), "/v1/trips/trip-9/candidates")

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "panic recovered", entry["message"])
	assert.Equal(t, "nil stop list", entry["panic"])
	assert.Equal(t, "/v1/trips/{tripId}/candidates", entry["route"])
	assert.Equal(t, "trip-9", entry["trip_id"])
	assert.NotEmpty(t, entry["stack"])
}

func TestRecovery_ResponseAlreadyStarted(t *testing.T) {
	log := zerolog.Nop()

	router := tripRouter(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late failure")
	}, middleware.Logger(log), middleware.Recovery(log))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/trips/t1/interval", http.NoBody))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRecovery_MarksSpan(t *testing.T) {
	sr, cleanup := setupTestTracer()
	defer cleanup()

	router := tripRouter(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, middleware.Tracing(), middleware.Recovery(zerolog.Nop()))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/trips/t1/candidates", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	handler := middleware.Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/stops", http.NoBody))
	})
}
