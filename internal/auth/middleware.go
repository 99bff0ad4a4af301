package auth

import (
	"net/http"
	"strings"

	"veraz/internal/log"
)

// Middleware rejects requests without a valid session. Browsers are sent to
// the login page; API and HTMX callers get a 401.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.FromRequest(r)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Session rejected",
				log.FieldPath, r.URL.Path, log.FieldError, err.Error())
			unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Header.Get("HX-Request") == "true":
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
	case strings.HasPrefix(r.URL.Path, "/api/"):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	default:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
