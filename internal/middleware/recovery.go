package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "github.com/ab2005/whatsapp-mcp/internal/errors"
	"github.com/ab2005/whatsapp-mcp/internal/httputil"
	"github.com/ab2005/whatsapp-mcp/internal/metrics"
	"github.com/ab2005/whatsapp-mcp/internal/tracing"

	"github.com/sirupsen/logrus"
)

// RecoveryMiddleware converts handler panics into a 500 envelope. It
// sits outermost so a panic in any later middleware is also caught.
// If the handler already started the response the write is a no-op at
// the client, but the panic is still logged and counted.
func RecoveryMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				requestInfo := tracing.GetRequestInfo(r.Context())
				logger.WithFields(logrus.Fields{
					"request_id": requestInfo.RequestID,
					"method":     r.Method,
					"path":       r.URL.Path,
					"panic":      rec,
					"stack":      string(debug.Stack()),
				}).Error("Recovered from handler panic")

				metrics.IncrementCounter("http_panics_total",
					map[string]string{"path": r.URL.Path}, "Panics recovered in HTTP handlers")

				httputil.WriteError(w, apperrors.New(apperrors.ErrCodeInternalError, "handler panic"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
