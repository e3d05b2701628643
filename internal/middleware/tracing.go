package middleware

import (
	"net/http"

	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// TraceHeader carries the request trace ID in both directions.
const TraceHeader = "X-Trace-ID"

// RequestID reuses the caller's trace ID or assigns a new one, stores it in
// the request context and echoes it on the response.
func RequestID(w http.ResponseWriter, r *http.Request, next http.Handler) {
	traceID := r.Header.Get(TraceHeader)
	if traceID == "" || len(traceID) > 128 {
		traceID = logger.NewTraceID()
	}

	ctx := logger.WithTraceID(r.Context(), traceID)
	w.Header().Set(TraceHeader, traceID)

	next.ServeHTTP(w, r.WithContext(ctx))
}
