package middleware

import (
	"log/slog"
	"net/http"
)

// Activity stamps last_activity for every authenticated request. Failures are
// logged and swallowed; a stale timestamp must never fail the request itself.
func Activity(touch func(r *http.Request, userID string) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := ClaimsFromContext(r.Context()); ok {
				if err := touch(r, claims.UserID); err != nil {
					slog.Warn("refresh last_activity", "user_id", claims.UserID, "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
