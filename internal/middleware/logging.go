package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Varun5711/shortbox/internal/logger"
)

// RequestLogger logs one line per request: server errors at error level,
// everything else at debug.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			if status >= http.StatusInternalServerError {
				log.Error("%s %s %d %dB in %v from %s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), ClientIP(r))
				return
			}
			log.Debug("%s %s %d %dB in %v from %s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), ClientIP(r))
		})
	}
}
