package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hangarhq/flightgate/internal/http/middleware"
	"github.com/hangarhq/flightgate/internal/http/response"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/service"
)

type AuthHandler struct {
	auth   *service.AuthService
	tokens *service.TokenService
}

func NewAuthHandler(auth *service.AuthService, tokens *service.TokenService) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Token optionally carries a TOTP code for single-shot login.
	Token string `json:"token"`
}

type verifyMFARequest struct {
	PendingID string `json:"pendingId"`
	Code      string `json:"code"`
}

type loginResponse struct {
	Token     string `json:"token"`
	CSRFToken string `json:"csrfToken"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "malformed request body", nil)
		return
	}
	res, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Token,
		IP:       clientIP(r),
	})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}
	observability.Audit(r, "login_succeeded", "user_id", res.Principal.UserID)
	h.writeSession(w, r, res)
}

func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req verifyMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "malformed request body", nil)
		return
	}
	res, err := h.auth.VerifyMFA(r.Context(), req.PendingID, req.Code, clientIP(r))
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}
	observability.Audit(r, "mfa_verified", "user_id", res.Principal.UserID)
	h.writeSession(w, r, res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.tokens.ClearSessionCookies() {
		http.SetCookie(w, c)
	}
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		observability.Audit(r, "logout", "user_id", p.UserID)
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, res *service.LoginResult) {
	for _, c := range h.tokens.SessionCookies(res.Token, res.CSRF) {
		http.SetCookie(w, c)
	}
	response.JSON(w, r, http.StatusOK, loginResponse{Token: res.Token, CSRFToken: res.CSRF.Value})
}

// writeLoginError keeps failure bodies uniform: a wrong password, an unknown
// email, a bad code, and an expired pending id all read the same except for
// the machine-readable code the client needs to drive its flow.
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var mfaErr *service.MFARequiredError
	var cooldown *service.CooldownError
	switch {
	case errors.As(err, &mfaErr):
		response.Error(w, r, http.StatusUnauthorized, response.CodeMFARequired, "MFA verification required",
			map[string]string{"pending_id": mfaErr.PendingID})
	case errors.As(err, &cooldown):
		secs := int(cooldown.RetryAfter.Round(time.Second).Seconds())
		if secs <= 0 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many failed attempts", nil)
	case errors.Is(err, service.ErrMFACodeFormat):
		response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "malformed verification code", nil)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidMFACode),
		errors.Is(err, service.ErrPendingAuthExpired):
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
	default:
		observability.Audit(r, "login_error", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
