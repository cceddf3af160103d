package authz

import (
	"encoding/json"
	"net/http"
)

// RequireAdmin returns middleware admitting only system admins. The caller
// identity comes from the X-User-Id header; a missing identity is a 401,
// a non-admin is a 403.
func RequireAdmin(checker Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-Id")
			if userID == "" {
				writeAuthzError(w, http.StatusUnauthorized, "unauthenticated", "missing X-User-Id header")
				return
			}

			allowed, err := checker.IsAdmin(r.Context(), userID)
			if err != nil {
				writeAuthzError(w, http.StatusInternalServerError, "internal_error", "admin check failed")
				return
			}
			if !allowed {
				writeAuthzError(w, http.StatusForbidden, "forbidden", "system admin required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthzError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
