package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/http/middleware"
	"github.com/hangarhq/flightgate/internal/http/response"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/repository"
	"github.com/hangarhq/flightgate/internal/service"
)

type SchoolHandler struct {
	schools repository.SchoolRepository
	authz   service.Authorizer
}

func NewSchoolHandler(schools repository.SchoolRepository, authz service.Authorizer) *SchoolHandler {
	return &SchoolHandler{schools: schools, authz: authz}
}

type updateStudentRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *SchoolHandler) GetSchool(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
		return
	}
	schoolID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
		return
	}
	if err := h.authz.Authorize(r.Context(), p, service.ActionSchoolRead, service.ResourceRef{SchoolID: &schoolID}); err != nil {
		writeAuthzError(w, r, err)
		return
	}
	school, err := h.schools.FindByID(r.Context(), schoolID)
	if err != nil {
		writeSchoolError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, school)
}

func (h *SchoolHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
		return
	}
	schoolID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
		return
	}
	if err := h.authz.Authorize(r.Context(), p, service.ActionSchoolRead, service.ResourceRef{SchoolID: &schoolID}); err != nil {
		writeAuthzError(w, r, err)
		return
	}
	students, err := h.schools.ListStudentsBySchool(r.Context(), schoolID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"students": students})
}

func (h *SchoolHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	h.withStudent(w, r, service.ActionStudentRead, func(student *domain.Student) {
		response.JSON(w, r, http.StatusOK, student)
	})
}

func (h *SchoolHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	h.withStudent(w, r, service.ActionStudentWrite, func(student *domain.Student) {
		var req updateStudentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "malformed request body", nil)
			return
		}
		if req.FirstName != "" {
			student.FirstName = req.FirstName
		}
		if req.LastName != "" {
			student.LastName = req.LastName
		}
		if err := h.schools.UpdateStudent(r.Context(), student); err != nil {
			response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
			return
		}
		observability.Audit(r, "student_updated", "student_id", student.ID, "school_id", student.SchoolID)
		response.JSON(w, r, http.StatusOK, student)
	})
}

// withStudent resolves the {id}/{studentId} pair, authorizes the action
// against the student's owning user, and hands the record to fn. A student
// outside the caller's scope and a student that does not exist produce the
// same not-found answer.
func (h *SchoolHandler) withStudent(w http.ResponseWriter, r *http.Request, action service.Action, fn func(*domain.Student)) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
		return
	}
	schoolID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
		return
	}
	studentID, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
		return
	}
	student, err := h.schools.FindStudentByID(r.Context(), studentID)
	if err != nil {
		writeSchoolError(w, r, err)
		return
	}
	if student.SchoolID != schoolID {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
		return
	}
	res := service.ResourceRef{SchoolID: &schoolID, StudentUserID: &student.UserID}
	if err := h.authz.Authorize(r.Context(), p, action, res); err != nil {
		writeAuthzError(w, r, err)
		return
	}
	fn(student)
}

func writeSchoolError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrSchoolNotFound) || errors.Is(err, repository.ErrStudentNotFound) {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "resource not found", nil)
		return
	}
	response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
}
