package dashboard_api

import (
	"net/http"
	"time"

	"ms-meetings/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}
