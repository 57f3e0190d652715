package httpapi

import (
	"net/http"
	"sort"
	"time"

	"finsense.io/compliance/internal/audit"
	"finsense.io/compliance/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string     `json:"token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *auth.User `json:"user"`
	Role        *auth.Role `json:"role,omitempty"`
	Permissions []string   `json:"permissions"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{
			"email": req.Email,
		})
		handleAuthError(w, r, err)
		return
	}

	audit.LogEvent(r.Context(), audit.EventLogin, map[string]any{
		"actor_id": res.User.ID,
	})
	if res.Permissions == nil {
		res.Permissions = []string{}
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt,
		User:        res.User,
		Role:        res.Role,
		Permissions: res.Permissions,
	})
}

// handleLogout revokes whatever credential was presented. The endpoint
// is public so a client holding an already-revoked token can still call
// it; the operation is idempotent end to end.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := extractBearerToken(r.Header.Get(authHeader))
	if err := a.svc.Logout(r.Context(), token); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.LogEvent(r.Context(), audit.EventLogout, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMe returns the caller's own record and effective permissions.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := auth.IdentityFromContext(r.Context())
	if !id.Authenticated() {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	u, err := a.svc.Store().Users().Find(r.Context(), id.PrincipalID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	perms := make([]string, 0, len(id.Permissions))
	for p := range id.Permissions {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        u,
		"is_admin":    id.IsAdmin,
		"permissions": perms,
	})
}
