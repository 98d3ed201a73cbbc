package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hangarhq/flightgate/internal/http/handler"
	"github.com/hangarhq/flightgate/internal/http/middleware"
	"github.com/hangarhq/flightgate/internal/http/response"
	"github.com/hangarhq/flightgate/internal/service"
)

type Dependencies struct {
	AuthHandler   *handler.AuthHandler
	APIKeyHandler *handler.APIKeyHandler
	SchoolHandler *handler.SchoolHandler

	APIKeyAdmitter  service.APIKeyAdmitter
	SessionVerifier service.SessionVerifier
	CSRFValidate    func(submitted, stored string) bool

	CSRFProtectedGETPrefixes []string
	CSRFBypassPrefixes       []string

	EnableOTelHTTP bool
}

// NewRouter assembles the layered gateway. Order under /api/v1 is fixed:
// API-key admission runs on every route, session auth and the CSRF guard
// only on the protected group. Login and MFA verification sit behind the
// key gate but outside session auth, since they are how a session is
// obtained in the first place.
func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})

	csrfGuard := middleware.CSRFGuard(middleware.CSRFConfig{
		ProtectedGETPrefixes: dep.CSRFProtectedGETPrefixes,
		BypassPrefixes:       dep.CSRFBypassPrefixes,
		Validate:             dep.CSRFValidate,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyGate(dep.APIKeyAdmitter))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/mfa/verify", dep.AuthHandler.VerifyMFA)
			r.With(middleware.SessionAuth(dep.SessionVerifier), csrfGuard).Post("/logout", dep.AuthHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(dep.SessionVerifier))
			r.Use(csrfGuard)

			r.Route("/apikeys", func(r chi.Router) {
				r.Post("/", dep.APIKeyHandler.Create)
				r.Get("/", dep.APIKeyHandler.List)
				r.Delete("/{id}", dep.APIKeyHandler.Revoke)
			})

			r.Route("/schools/{id}", func(r chi.Router) {
				r.Get("/", dep.SchoolHandler.GetSchool)
				r.Get("/students", dep.SchoolHandler.ListStudents)
				r.Get("/students/{studentId}", dep.SchoolHandler.GetStudent)
				r.Patch("/students/{studentId}", dep.SchoolHandler.UpdateStudent)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
