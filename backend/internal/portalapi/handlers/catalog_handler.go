package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"uniportal/backend/internal/portalapi/util"
	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

// CatalogHandler serves courses, departments and teacher assignments
type CatalogHandler struct {
	Store store.Store
}

// CreateCourseRequest mirrors the JSON input for POST /courses/add
type CreateCourseRequest struct {
	CourseID      string `json:"course_id" validate:"required"`
	CourseName    string `json:"course_name" validate:"required"`
	CourseContent string `json:"course_content"`
}

// CreateDepartmentRequest mirrors the JSON input for POST /departments/add
type CreateDepartmentRequest struct {
	DepartmentID   string `json:"department_id" validate:"required"`
	DepartmentName string `json:"department_name" validate:"required"`
	ImageLink      string `json:"image_link"`
	Description    string `json:"description"`
}

// AssignRequest mirrors the JSON input for POST /assigns
type AssignRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// ============================================================================
// Courses
// ============================================================================

// ListCourses handles GET /courses (public)
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.Store.ListCourses(r.Context())
	if err != nil {
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteJSON(w, http.StatusOK, courses)
}

// GetCourse handles GET /courses/{id} (public)
func (h *CatalogHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleStoreError(w, err, "Course not found")
		return
	}
	util.WriteJSON(w, http.StatusOK, c)
}

// CreateCourse handles POST /courses/add (admin)
func (h *CatalogHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdmin) == nil {
		return
	}

	var req CreateCourseRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}

	c := &shared.Course{
		ID:            shared.GenerateID("crs"),
		CourseID:      strings.TrimSpace(req.CourseID),
		CourseName:    strings.TrimSpace(req.CourseName),
		CourseContent: strings.TrimSpace(req.CourseContent),
		CreatedAt:     time.Now(),
	}
	if err := h.Store.CreateCourse(r.Context(), c); err != nil {
		if isConflict(err) {
			util.WriteJSONError(w, http.StatusConflict, "Course with this ID already exists")
			return
		}
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteMessage(w, http.StatusCreated, "Course added successfully", c)
}

// ============================================================================
// Departments
// ============================================================================

// ListDepartments handles GET /departments/all (public)
func (h *CatalogHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Store.ListDepartments(r.Context())
	if err != nil {
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteJSON(w, http.StatusOK, departments)
}

// CreateDepartment handles POST /departments/add (admin)
func (h *CatalogHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdmin) == nil {
		return
	}

	var req CreateDepartmentRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}

	d := &shared.Department{
		ID:           shared.GenerateID("dep"),
		DepartmentID: strings.TrimSpace(req.DepartmentID),
		Name:         strings.TrimSpace(req.DepartmentName),
		ImageLink:    strings.TrimSpace(req.ImageLink),
		Description:  strings.TrimSpace(req.Description),
		CreatedAt:    time.Now(),
	}
	if err := h.Store.CreateDepartment(r.Context(), d); err != nil {
		if isConflict(err) {
			util.WriteJSONError(w, http.StatusConflict, "Department with this ID already exists")
			return
		}
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteMessage(w, http.StatusCreated, "Department added successfully", d)
}

// ============================================================================
// Assignments
// ============================================================================

// ListAssignments handles GET /assigns
// Query Params: teacher_id. Teachers only see their own assignments.
func (h *CatalogHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	claims := requireRole(w, r, shared.RoleTeacher, shared.RoleAdmin)
	if claims == nil {
		return
	}

	teacherID := r.URL.Query().Get("teacher_id")
	if claims.Role == shared.RoleTeacher {
		if teacherID != "" && teacherID != claims.UserID {
			util.WriteJSONError(w, http.StatusForbidden, "Access denied: Teachers can only view their own courses")
			return
		}
		teacherID = claims.UserID
	}

	assigned, err := h.Store.ListAssignments(r.Context(), teacherID)
	if err != nil {
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteJSON(w, http.StatusOK, assigned)
}

// CreateAssignment handles POST /assigns (admin)
func (h *CatalogHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdmin) == nil {
		return
	}

	var req AssignRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}
	teacherID, courseID := strings.TrimSpace(req.TeacherID), strings.TrimSpace(req.CourseID)

	// 1. Both sides must exist
	if _, err := h.Store.GetAccount(r.Context(), shared.RoleTeacher, teacherID); err != nil {
		util.HandleStoreError(w, err, "Teacher not found")
		return
	}
	course, err := h.Store.GetCourse(r.Context(), courseID)
	if err != nil {
		util.HandleStoreError(w, err, "Course not found")
		return
	}

	// 2. Persist with the course name denormalized for the dashboard
	a := &shared.Assignment{
		ID:        shared.GenerateID("asg"),
		TeacherID: teacherID,
		CourseID:  courseID,
		Name:      course.CourseName,
		CreatedAt: time.Now(),
	}
	if err := h.Store.CreateAssignment(r.Context(), a); err != nil {
		if isConflict(err) {
			util.WriteJSONError(w, http.StatusConflict, "Course is already assigned to this teacher")
			return
		}
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteMessage(w, http.StatusCreated, "Course assigned successfully", a)
}

// DeleteAssignment handles DELETE /assigns/{teacherId}/{courseId} (admin)
func (h *CatalogHandler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdmin) == nil {
		return
	}

	if err := h.Store.DeleteAssignment(r.Context(), chi.URLParam(r, "teacherId"), chi.URLParam(r, "courseId")); err != nil {
		util.HandleStoreError(w, err, "Assignment not found")
		return
	}
	util.WriteMessage(w, http.StatusOK, "Course unassigned from teacher successfully", nil)
}
