package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"uniportal/backend/internal/portalapi/util"
	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

// StudentHandler serves student records and advisor course edits
type StudentHandler struct {
	Store store.Store
}

// CourseRequest mirrors the JSON input for POST/DELETE /students/{studentId}/course
type CourseRequest struct {
	Course string `json:"course" validate:"required"`
}

// ListStudents handles GET /students
// Query Params: department_id (optional). Advisors are always scoped to
// their own department.
func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	claims := requireRole(w, r, shared.RoleTeacher, shared.RoleAdvisor, shared.RoleAdmin)
	if claims == nil {
		return
	}

	departmentID := r.URL.Query().Get("department_id")
	if claims.Role == shared.RoleAdvisor {
		advisor, err := h.Store.GetAccount(r.Context(), shared.RoleAdvisor, claims.UserID)
		if err != nil {
			util.HandleStoreError(w, err, "Advisor not found")
			return
		}
		if departmentID != "" && departmentID != advisor.DepartmentID {
			util.WriteJSONError(w, http.StatusForbidden, "Access denied: Advisors can only view their own department")
			return
		}
		departmentID = advisor.DepartmentID
	}

	students, err := h.Store.ListStudents(r.Context(), departmentID)
	if err != nil {
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteJSON(w, http.StatusOK, students)
}

// GetStudent handles GET /students/{studentId}
func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	claims := requireRole(w, r, shared.RoleStudent, shared.RoleTeacher, shared.RoleAdvisor, shared.RoleAdmin)
	if claims == nil {
		return
	}

	s, err := h.Store.GetStudent(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		util.HandleStoreError(w, err, "Student not found")
		return
	}
	if claims.Role == shared.RoleStudent && claims.UserID != s.ID {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Students can only view their own record")
		return
	}
	util.WriteJSON(w, http.StatusOK, s)
}

// AddCourse handles POST /students/{studentId}/course and returns the
// updated student
func (h *StudentHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdvisor, shared.RoleAdmin) == nil {
		return
	}

	var req CourseRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}
	course := strings.TrimSpace(req.Course)
	if course == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "Please enter a course name")
		return
	}

	s, err := h.Store.AddStudentCourse(r.Context(), chi.URLParam(r, "studentId"), course)
	if err != nil {
		if isConflict(err) {
			util.WriteJSONError(w, http.StatusConflict, "Student is already enrolled in this course")
			return
		}
		util.HandleStoreError(w, err, "Student not found")
		return
	}
	util.WriteMessage(w, http.StatusOK, "Course added successfully", s)
}

// RemoveCourse handles DELETE /students/{studentId}/course and returns the
// updated student
func (h *StudentHandler) RemoveCourse(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdvisor, shared.RoleAdmin) == nil {
		return
	}

	var req CourseRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}

	s, err := h.Store.RemoveStudentCourse(r.Context(), chi.URLParam(r, "studentId"), strings.TrimSpace(req.Course))
	if err != nil {
		util.HandleStoreError(w, err, "Student or course not found")
		return
	}
	util.WriteMessage(w, http.StatusOK, "Course removed successfully", s)
}
