// Package response renders the single JSON envelope every gateway endpoint
// speaks: {success, data, error{code,message,details}, meta{request_id,timestamp}}.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Code classifies a failure for machine consumption. Messages stay generic
// on purpose; the code is the part clients branch on.
type Code string

const (
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeMFARequired    Code = "MFA_REQUIRED"
	CodeInternal       Code = "INTERNAL"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, envelope{Success: true, Data: data})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code Code, message string, details any) {
	write(w, r, status, envelope{
		Success: false,
		Error:   &apiError{Code: code, Message: message, Details: details},
	})
}

// write stamps the meta block and echoes the request id back as a header so
// clients can quote it when reporting a rejected call.
func write(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	env.Meta = meta{RequestID: requestID(r), Timestamp: time.Now().UTC()}
	if env.Meta.RequestID != "" {
		w.Header().Set("X-Request-Id", env.Meta.RequestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// requestID prefers the id minted by the router's RequestID middleware,
// falling back to a client-supplied header for calls that bypass the router.
func requestID(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-Id")
}
