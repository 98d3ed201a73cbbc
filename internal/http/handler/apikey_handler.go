package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hangarhq/flightgate/internal/http/middleware"
	"github.com/hangarhq/flightgate/internal/http/response"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/repository"
	"github.com/hangarhq/flightgate/internal/service"
)

type APIKeyHandler struct {
	keys  *service.APIKeyService
	authz service.Authorizer
}

func NewAPIKeyHandler(keys *service.APIKeyService, authz service.Authorizer) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, authz: authz}
}

type createAPIKeyRequest struct {
	Label         string `json:"label"`
	DurationValue int    `json:"durationValue"`
	DurationType  string `json:"durationType"`
}

type createAPIKeyResponse struct {
	ID      uint   `json:"id"`
	Label   string `json:"label"`
	LastSix string `json:"lastSix"`
	// APIKey is the plaintext, shown exactly once at creation.
	APIKey string `json:"apiKey"`
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
		return
	}
	if err := h.authz.Authorize(r.Context(), p, service.ActionAPIKeyManage, service.ResourceRef{}); err != nil {
		writeAuthzError(w, r, err)
		return
	}
	var req createAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "malformed request body", nil)
		return
	}
	gen, err := h.keys.Generate(r.Context(), p.UserID, req.Label, req.DurationValue, req.DurationType)
	if err != nil {
		if errors.Is(err, service.ErrInvalidKeyRequest) {
			response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
		return
	}
	observability.Audit(r, "api_key_created", "user_id", p.UserID, "key_id", gen.Record.ID, "label", gen.Record.Label)
	response.JSON(w, r, http.StatusCreated, createAPIKeyResponse{
		ID:      gen.Record.ID,
		Label:   gen.Record.Label,
		LastSix: gen.Record.LastSix,
		APIKey:  gen.Plaintext,
	})
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
		return
	}
	if err := h.authz.Authorize(r.Context(), p, service.ActionAPIKeyManage, service.ResourceRef{}); err != nil {
		writeAuthzError(w, r, err)
		return
	}
	views, err := h.keys.List(r.Context(), p.UserID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"keys": views})
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
		return
	}
	if err := h.authz.Authorize(r.Context(), p, service.ActionAPIKeyManage, service.ResourceRef{}); err != nil {
		writeAuthzError(w, r, err)
		return
	}
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
		return
	}
	if err := h.keys.RevokeOwned(r.Context(), p.UserID, id); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
		return
	}
	observability.Audit(r, "api_key_revoked", "user_id", p.UserID, "key_id", id)
	response.JSON(w, r, http.StatusOK, map[string]bool{"revoked": true})
}

func parseID(raw string) (uint, bool) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

// writeAuthzError maps authorization failures onto the wire: cross-tenant
// scope denials read as not found so resource existence is never confirmed,
// in-scope privilege denials read as forbidden.
func writeAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrScopeNotFound):
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "insufficient privileges", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
	}
}
