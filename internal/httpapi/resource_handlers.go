package httpapi

import (
	"net/http"
	"strings"

	"finsense.io/compliance/internal/compliance"
	"finsense.io/compliance/internal/ids"
)

// Documents -----------------------------------------------------------------

type documentRequest struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
	ContentHash string   `json:"content_hash"`
	StorageURL  string   `json:"storage_url"`
}

func (a *API) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := a.documents.List(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	case http.MethodPost:
		var req documentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		doc := &compliance.Document{
			ID:          ids.New(),
			Name:        req.Name,
			Type:        req.Type,
			Tags:        req.Tags,
			ContentHash: req.ContentHash,
			StorageURL:  req.StorageURL,
			Version:     1,
		}
		created, err := a.documents.Create(r.Context(), doc)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		doc, err := a.documents.Get(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut:
		var req documentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := a.documents.Update(r.Context(), id, func(d *compliance.Document) error {
			if req.Name != "" {
				d.Name = req.Name
			}
			if req.Type != "" {
				d.Type = req.Type
			}
			if req.Tags != nil {
				d.Tags = req.Tags
			}
			if req.ContentHash != "" && req.ContentHash != d.ContentHash {
				d.ContentHash = req.ContentHash
				d.Version++
			}
			if req.StorageURL != "" {
				d.StorageURL = req.StorageURL
			}
			return nil
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := a.documents.Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// Violations ----------------------------------------------------------------

type violationRequest struct {
	RuleID      string `json:"rule_id"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

func (a *API) handleViolations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		violations, err := a.violations.List(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, violations)
	case http.MethodPost:
		var req violationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.RuleID) == "" {
			writeError(w, r, http.StatusBadRequest, "rule_id is required")
			return
		}
		v := &compliance.Violation{
			ID:          ids.New(),
			RuleID:      req.RuleID,
			Severity:    req.Severity,
			Status:      req.Status,
			Description: req.Description,
		}
		if v.Severity == "" {
			v.Severity = compliance.SeverityMedium
		}
		if v.Status == "" {
			v.Status = compliance.ViolationOpen
		}
		created, err := a.violations.Create(r.Context(), v)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleViolationByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/violations/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		v, err := a.violations.Get(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	case http.MethodPut:
		var req violationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		v, err := a.violations.Update(r.Context(), id, func(v *compliance.Violation) error {
			if req.RuleID != "" {
				v.RuleID = req.RuleID
			}
			if req.Severity != "" {
				v.Severity = req.Severity
			}
			if req.Status != "" {
				v.Status = req.Status
			}
			if req.Description != "" {
				v.Description = req.Description
			}
			return nil
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	case http.MethodDelete:
		if err := a.violations.Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
