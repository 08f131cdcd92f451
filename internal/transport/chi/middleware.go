package chi

import (
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	logpkg "github.com/kailas-cloud/playsearch/internal/logger"
)

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one canonical log line per request and propagates X-Request-ID.
// Handlers and use cases add fields through logger.Annotate.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)
			ctx, event := logpkg.ContextWithEvent(ctx)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := append([]zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}, event.Fields()...)
			reqLogger.Info("http_request", fields...)
		})
	}
}

// authenticate resolves the Bearer token into a user context.
// The user context never comes from the request body.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const bearerPrefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			handleDomainError(w, r, domain.ErrUnauthorized)
			return
		}

		u, err := s.auth.Authenticate(r.Context(), strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			handleDomainError(w, r, err)
			return
		}

		ctx := user.WithContext(r.Context(), u)
		ctx = logpkg.ContextWithLogger(ctx, logpkg.FromContext(ctx).With(
			zap.String("user_id", u.UserID),
			zap.String("company_id", u.CompanyID),
		))
		logpkg.Annotate(ctx, zap.String("user_id", u.UserID), zap.String("company_id", u.CompanyID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
