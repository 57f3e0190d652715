// Package httpapi exposes the service over HTTP/JSON. Routing is a
// plain ServeMux with manual method dispatch; every request passes the
// same middleware chain and authentication filter.
package httpapi

import (
	"database/sql"
	"net/http"

	"finsense.io/compliance/internal/auth"
	"finsense.io/compliance/internal/compliance"
	"finsense.io/compliance/internal/obs"
	"finsense.io/compliance/internal/resource"
)

// API wires handlers to the auth service and the gated collections.
type API struct {
	svc        *auth.Service
	documents  *resource.Gate[*compliance.Document]
	violations *resource.Gate[*compliance.Violation]
	userEval   *auth.Evaluator

	// db is optional; readiness degrades to liveness without it.
	db *sql.DB

	version string
	commit  string
}

type Option func(*API)

func WithDB(db *sql.DB) Option {
	return func(a *API) { a.db = db }
}

func WithBuildInfo(version, commit string) Option {
	return func(a *API) {
		a.version = version
		a.commit = commit
	}
}

func New(svc *auth.Service,
	documents *resource.Gate[*compliance.Document],
	violations *resource.Gate[*compliance.Violation],
	opts ...Option) *API {

	a := &API{
		svc:        svc,
		documents:  documents,
		violations: violations,
		userEval:   auth.NewEvaluator(auth.ResourceUser),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler assembles the full middleware chain around the route table.
func (a *API) Handler(rateBurst, ratePerSecond int) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.HandleFunc("/v1/info", a.handleInfo)
	mux.Handle("/metrics", obs.Handler())

	mux.HandleFunc("/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	mux.HandleFunc("/v1/me", a.handleMe)

	mux.HandleFunc("/v1/documents", a.handleDocuments)
	mux.HandleFunc("/v1/documents/", a.handleDocumentByID)
	mux.HandleFunc("/v1/violations", a.handleViolations)
	mux.HandleFunc("/v1/violations/", a.handleViolationByID)
	mux.HandleFunc("/v1/users", a.handleUsers)
	mux.HandleFunc("/v1/users/", a.handleUserByID)

	var h http.Handler = mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = RateLimit(h, rateBurst, ratePerSecond)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.db != nil {
		if err := a.db.PingContext(r.Context()); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "compliance-api",
		"version": a.version,
		"commit":  a.commit,
	})
}
