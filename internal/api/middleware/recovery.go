package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Recoverer turns a handler panic into a 500 error envelope instead of
// killing the process mid-call. http.ErrAbortHandler is re-raised
// untouched so a client dropping the connection mid-response is not
// logged as a crash.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("http handler panicked",
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			replyError(w, r, http.StatusInternalServerError, "internal", "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
