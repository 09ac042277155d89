package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"rulegate/internal/domain"
)

// Authenticate resolves the calling principal from a Bearer token and stores
// it in the request context.
//
// Requests without any token proceed unauthenticated: the access path treats
// them as the anonymous subject, and administrative services reject them.
// A token that is present but fails validation is rejected with 401.
func Authenticate(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				writeUnauthorized(w, "authorization header must carry a Bearer token")
				return
			}

			claims, err := v.Validate(r.Context(), token)
			if err != nil || claims.Subject == "" {
				writeUnauthorized(w, "invalid token")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{
				Subject: claims.Subject,
				IsAdmin: claims.Admin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": msg,
	})
}
