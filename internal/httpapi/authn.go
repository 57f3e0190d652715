package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"finsense.io/compliance/internal/audit"
	"finsense.io/compliance/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// publicPaths skip the credential check entirely. Login and logout are
// here because logout must accept already-revoked tokens, and signup
// because it is the account bootstrap. Everything else runs through
// withAuth, which attaches either an authenticated identity or the
// anonymous one; per-resource checks then decide.
var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/logout",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
}

func isPublicPath(r *http.Request) bool {
	for _, p := range publicPaths {
		if r.URL.Path == p {
			return true
		}
	}
	// Signup: only creation is public on the users collection.
	if r.URL.Path == "/v1/users" && r.Method == http.MethodPost {
		return true
	}
	return false
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r.Header.Get(authHeader))
		identity, err := a.svc.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredential), errors.Is(err, auth.ErrRevoked):
				audit.LogEvent(r.Context(), audit.EventTokenRejected, map[string]any{
					"path": r.URL.Path,
				})
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken returns the credential from an Authorization
// header, or empty when the header is missing or malformed. A missing
// credential is the anonymous caller, not a protocol error.
func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}
