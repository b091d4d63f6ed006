package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger returns a middleware that writes one line per request. The line
// carries the matched route pattern and, for trip routes, the trip and stop
// ids so a trip's edit history can be followed through the log. Server errors
// log at error level, client errors at warn, and ops endpoints at debug.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			route := RoutePattern(r)
			event := requestEvent(log, route, wrapped.statusCode).
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("route", route).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.IsValid() {
				event = event.
					Str("trace_id", spanCtx.TraceID().String()).
					Str("span_id", spanCtx.SpanID().String())
			}
			if tripID := TripID(r); tripID != "" {
				event = event.Str("trip_id", tripID)
			}
			if stopID := StopID(r); stopID != "" {
				event = event.Str("stop_id", stopID)
			}

			event.Msg("request completed")
		})
	}
}

func requestEvent(log zerolog.Logger, route string, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	case strings.HasPrefix(route, "/v1/ops/"):
		return log.Debug()
	default:
		return log.Info()
	}
}
