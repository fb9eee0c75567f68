package middleware

import (
	"net/http"

	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/logging"
)

// Recovery is middleware that recovers from panics and returns a 500 error.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logging.FromContext(r.Context()).Error("panic recovered", "error", err, "path", r.URL.Path)
				response.Err(w, http.StatusInternalServerError, response.MsgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
