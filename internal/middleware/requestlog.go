package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/serroba/linkshort/internal/telemetry"
	"go.uber.org/zap"
)

// Emitter reports telemetry events.
type Emitter interface {
	Emit(level telemetry.Level, pkg, message string)
}

// RequestTelemetry emits an "incoming request" event for every request
// before it is routed, including requests that match no route.
func RequestTelemetry(emitter Emitter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			emitter.Emit(telemetry.LevelInfo, telemetry.PackageMiddleware,
				"Incoming request: "+r.Method+" "+r.URL.RequestURI())

			logger.Debug("incoming request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("client_ip", clientIP(r)),
				zap.String("user_agent", r.UserAgent()),
			)

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP, preferring proxy headers.
func clientIP(r *http.Request) string {
	// X-Forwarded-For may hold a chain; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
