package httpapi

import (
	"net/http"
	"net/mail"
	"strings"

	"finsense.io/compliance/internal/audit"
	"finsense.io/compliance/internal/auth"
	"finsense.io/compliance/internal/ids"
	"finsense.io/compliance/internal/lifecycle"
)

// User handlers do not go through the generic gate: the users
// collection carries explicit self-service clauses on top of the
// uniform policy, and those clauses are spelled out here per operation
// rather than folded into the evaluator.

type createUserRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"full_name"`
	OrganizationID string `json:"organization_id"`
	RoleID         string `json:"role_id"`
}

type updateUserRequest struct {
	Email          *string `json:"email"`
	Password       *string `json:"password"`
	FullName       *string `json:"full_name"`
	Status         *string `json:"status"`
	OrganizationID *string `json:"organization_id"`
	RoleID         *string `json:"role_id"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	scope := a.userEval.ListScope(id)
	users, err := a.svc.Store().Users().List(r.Context(), scope)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// createUser doubles as public signup: the route is open, and an
// anonymous caller creates an account holding no role. Role and
// organization assignment on the way in is reserved for callers who
// could also update the record afterwards.
func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password too short")
		return
	}

	id := auth.IdentityFromContext(r.Context())
	// Anonymous signup is the only exemption from the create check,
	// and it cannot assign a role or organization. An authenticated
	// caller always needs the permission.
	if id.Authenticated() {
		if err := a.userEval.CanCreate(id); err != nil {
			a.denyUserOp(r, "create", "")
			handleAuthError(w, r, err)
			return
		}
	} else if req.RoleID != "" || req.OrganizationID != "" {
		a.denyUserOp(r, "create", "")
		handleAuthError(w, r, auth.ErrAccessDenied)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	u := &auth.User{
		ID:             ids.New(),
		Email:          req.Email,
		FullName:       req.FullName,
		PasswordHash:   hash,
		Status:         auth.UserStatusActive,
		RoleID:         req.RoleID,
		OrganizationID: req.OrganizationID,
	}
	lifecycle.StampCreate(&u.Meta, id.PrincipalID)

	if err := a.svc.Store().Users().Create(r.Context(), u); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.recordUserEvent(r, audit.EventCreate, u.ID)
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	targetID := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if targetID == "" || strings.Contains(targetID, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, targetID)
	case http.MethodPut:
		a.updateUser(w, r, targetID)
	case http.MethodDelete:
		a.deleteUser(w, r, targetID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, targetID string) {
	id := auth.IdentityFromContext(r.Context())
	u, err := a.svc.Store().Users().Find(r.Context(), targetID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	// Self-service clause: a principal always reads its own record.
	if !id.IsSelf(targetID) {
		if err := a.userEval.CanGet(id, u.CreatedBy); err != nil {
			a.denyUserOp(r, "get", targetID)
			handleAuthError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, u)
}

// updateUser applies the self-service clause from the users collection:
// a principal may update its own record as long as role and
// organization assignments stay untouched. Changing either, or touching
// someone else's record, requires the full permission-and-ownership
// check.
func (a *API) updateUser(w http.ResponseWriter, r *http.Request, targetID string) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := auth.IdentityFromContext(r.Context())
	u, err := a.svc.Store().Users().Find(r.Context(), targetID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	touchesPrivileged := req.RoleID != nil || req.OrganizationID != nil || req.Status != nil
	selfServe := id.IsSelf(targetID) && !touchesPrivileged
	if !selfServe {
		if err := a.userEval.CanUpdate(id, u.CreatedBy); err != nil {
			a.denyUserOp(r, "update", targetID)
			handleAuthError(w, r, err)
			return
		}
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid email")
			return
		}
		u.Email = email
	}
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			writeError(w, r, http.StatusBadRequest, "password too short")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		u.PasswordHash = hash
	}
	if req.Status != nil {
		u.Status = *req.Status
	}
	if req.RoleID != nil {
		u.RoleID = *req.RoleID
	}
	if req.OrganizationID != nil {
		u.OrganizationID = *req.OrganizationID
	}
	lifecycle.StampUpdate(&u.Meta, id.PrincipalID)

	if err := a.svc.Store().Users().Update(r.Context(), u); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.recordUserEvent(r, audit.EventUpdate, targetID)
	writeJSON(w, http.StatusOK, u)
}

// deleteUser allows self-removal without the delete permission; any
// other target goes through the full check. Deletion is soft either
// way.
func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, targetID string) {
	id := auth.IdentityFromContext(r.Context())
	u, err := a.svc.Store().Users().Find(r.Context(), targetID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if !id.IsSelf(targetID) {
		if err := a.userEval.CanDelete(id, u.CreatedBy); err != nil {
			a.denyUserOp(r, "delete", targetID)
			handleAuthError(w, r, err)
			return
		}
	}
	lifecycle.StampDelete(&u.Meta, id.PrincipalID, a.svc.Now())
	if err := a.svc.Store().Users().Update(r.Context(), u); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.recordUserEvent(r, audit.EventDelete, targetID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) recordUserEvent(r *http.Request, event, targetID string) {
	ctx := r.Context()
	audit.LogEvent(ctx, event, map[string]any{
		"resource": auth.ResourceUser,
		"id":       targetID,
	})
	_ = a.svc.Store().Audit().Append(ctx, audit.Entry(ctx, event, auth.ResourceUser, targetID, nil))
}

func (a *API) denyUserOp(r *http.Request, op, targetID string) {
	ctx := r.Context()
	audit.LogEvent(ctx, audit.EventAccessDenied, map[string]any{
		"resource": auth.ResourceUser,
		"op":       op,
		"id":       targetID,
	})
	_ = a.svc.Store().Audit().Append(ctx, audit.Entry(ctx, audit.EventAccessDenied,
		auth.ResourceUser, targetID, map[string]string{"op": op}))
}
