package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"

	"github.com/conjugo/conjugo/internal/adapters/http/dto"
)

// Recovery turns panics into 500 responses and forwards them to sentry.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				sentry.CurrentHub().Recover(rec)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(dto.NewErrorResponse(dto.CodeInternal, "internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
