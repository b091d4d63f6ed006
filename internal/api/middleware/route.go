package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests the router could not match (404, 405).
const UnmatchedRoute = "unmatched"

// RoutePattern returns the chi pattern the request was dispatched to, such as
// "/v1/trips/{tripId}/stops/{stopId}". Metrics, spans and logs are labelled
// with it instead of the raw path so trip and stop ids stay out of label
// values. The pattern is only complete once routing has happened, so
// middleware must read it after calling next.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return UnmatchedRoute
}

// routeParam returns a URL parameter captured while routing, or "" before
// routing or outside a chi router.
func routeParam(r *http.Request, key string) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.URLParam(key)
	}
	return ""
}

// TripID returns the {tripId} path parameter of a routed request.
func TripID(r *http.Request) string {
	return routeParam(r, "tripId")
}

// StopID returns the {stopId} path parameter of a routed request.
func StopID(r *http.Request) string {
	return routeParam(r, "stopId")
}

// statusRecorder captures the response status and body size. Logging, tracing
// and metrics each wrap the writer they are given.
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// headerSent reports whether a response has already started on w, in which
// case an error body can no longer be written.
func headerSent(w http.ResponseWriter) bool {
	for {
		switch rw := w.(type) {
		case *statusRecorder:
			if rw.wroteHeader {
				return true
			}
			w = rw.ResponseWriter
		default:
			return false
		}
	}
}
