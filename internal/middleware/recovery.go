package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	svcerrors "github.com/R3E-Network/paneladmin/internal/errors"
	"github.com/R3E-Network/paneladmin/internal/httputil"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// Recovery turns handler panics into a 500 JSON response.
type Recovery struct {
	logger *logger.Logger
}

func NewRecovery(log *logger.Logger) *Recovery {
	return &Recovery{logger: log}
}

func (m *Recovery) Name() string { return "recovery" }

func (m *Recovery) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			m.logger.WithTrace(r.Context()).
				WithField("panic", fmt.Sprint(rec)).
				WithField("stack", string(debug.Stack())).
				Error("handler panicked")
			httputil.WriteError(w, svcerrors.Internal("internal server error", fmt.Errorf("panic: %v", rec)))
		}()
		next.ServeHTTP(w, r)
	})
}
