package http

import (
	"net/http"

	"github.com/google/uuid"

	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/util/encoding"
)

// TraceIDHeader carries the trace ID between services.
const TraceIDHeader = "X-Request-ID"

// TracingMiddleware stores a trace ID in the request context and echoes it in the
// response. The X-Request-ID header is used if present, otherwise a UUIDv7 is
// generated.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := getTraceID(r)
		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(context_.WithTraceID(r.Context(), traceID)))
	})
}

func getTraceID(r *http.Request) string {
	if traceID := r.Header.Get(TraceIDHeader); traceID != "" {
		return traceID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}

	return encoding.EncodeCrockfordB32LC(id[:])
}
