package middleware

import (
	"net/http"

	logpkg "github.com/benvon/simple-todo/internal/logger"
	"github.com/benvon/simple-todo/internal/request"
	"go.uber.org/zap"
)

// Audit logs rejected requests (rate limited, oversized, wrong media type)
// and every successful change to the todo collection.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
				zap.String("request_id", request.IDFromContext(r.Context())),
			}

			switch status := rec.status; {
			case status == http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation", fields...)
			case status == http.StatusRequestEntityTooLarge, status == http.StatusUnsupportedMediaType:
				logger.Warn("request_rejected", append(fields, zap.Int("status_code", status))...)
			case isMutation(r.Method) && status >= 200 && status < 300:
				logger.Info("todo_mutation", append(fields, zap.Int("status_code", status))...)
			}
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
