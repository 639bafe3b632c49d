package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"uniportal/backend/internal/portalapi/util"
	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

// ResultHandler serves numeric course results
type ResultHandler struct {
	Store store.Store
}

// CreateResultRequest mirrors the JSON input for POST /results
type CreateResultRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	CourseID  string   `json:"course_id" validate:"required"`
	Result    *float64 `json:"result" validate:"required,gte=0,lte=100"`
}

// UpdateResultRequest mirrors the JSON input for PATCH /results/{studentId}/{courseId}
type UpdateResultRequest struct {
	Result *float64 `json:"result" validate:"required,gte=0,lte=100"`
}

// ListResults handles GET /results
func (h *ResultHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleTeacher, shared.RoleAdvisor, shared.RoleAdmin) == nil {
		return
	}

	results, err := h.Store.ListResults(r.Context(), "")
	if err != nil {
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteJSON(w, http.StatusOK, results)
}

// ListStudentResults handles GET /results/student/{studentId}
// Students can only read their own results.
func (h *ResultHandler) ListStudentResults(w http.ResponseWriter, r *http.Request) {
	claims := requireRole(w, r, shared.RoleStudent, shared.RoleTeacher, shared.RoleAdvisor, shared.RoleAdmin)
	if claims == nil {
		return
	}

	studentID := chi.URLParam(r, "studentId")
	if claims.Role == shared.RoleStudent {
		s, err := h.Store.GetStudent(r.Context(), studentID)
		if err != nil {
			util.HandleStoreError(w, err, "Student not found")
			return
		}
		if s.ID != claims.UserID {
			util.WriteJSONError(w, http.StatusForbidden, "Access denied: Students can only view their own results")
			return
		}
	}

	results, err := h.Store.ListResults(r.Context(), studentID)
	if err != nil {
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteJSON(w, http.StatusOK, results)
}

// CreateResult handles POST /results (teacher of the course, or admin)
func (h *ResultHandler) CreateResult(w http.ResponseWriter, r *http.Request) {
	// 1. Authorization
	claims := requireRole(w, r, shared.RoleTeacher, shared.RoleAdmin)
	if claims == nil {
		return
	}

	// 2. Decode & validate
	var req CreateResultRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}
	if !h.canGrade(r.Context(), w, claims, req.CourseID) {
		return
	}

	// 3. The student must exist and be enrolled
	s, err := h.Store.GetStudent(r.Context(), req.StudentID)
	if err != nil {
		util.HandleStoreError(w, err, "Student not found")
		return
	}
	if !s.HasCourse(req.CourseID) {
		util.WriteJSONError(w, http.StatusBadRequest, "Student is not enrolled in this course")
		return
	}

	// 4. Persist
	result := &shared.Result{
		ID:        shared.GenerateID("res"),
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Result:    *req.Result,
		CreatedAt: time.Now(),
	}
	if err := h.Store.CreateResult(r.Context(), result); err != nil {
		if isConflict(err) {
			util.WriteJSONError(w, http.StatusConflict, "Result already exists for this student and course")
			return
		}
		util.HandleStoreError(w, err, "")
		return
	}

	util.WriteMessage(w, http.StatusCreated, "Result saved successfully", result)
}

// UpdateResult handles PATCH /results/{studentId}/{courseId}
func (h *ResultHandler) UpdateResult(w http.ResponseWriter, r *http.Request) {
	claims := requireRole(w, r, shared.RoleTeacher, shared.RoleAdmin)
	if claims == nil {
		return
	}

	var req UpdateResultRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}

	courseID := chi.URLParam(r, "courseId")
	if !h.canGrade(r.Context(), w, claims, courseID) {
		return
	}

	result, err := h.Store.UpdateResult(r.Context(), chi.URLParam(r, "studentId"), courseID, *req.Result)
	if err != nil {
		util.HandleStoreError(w, err, "Result not found")
		return
	}
	util.WriteMessage(w, http.StatusOK, "Result updated successfully", result)
}

// DeleteResult handles DELETE /results/{studentId}/{courseId}
func (h *ResultHandler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	claims := requireRole(w, r, shared.RoleTeacher, shared.RoleAdmin)
	if claims == nil {
		return
	}

	courseID := chi.URLParam(r, "courseId")
	if !h.canGrade(r.Context(), w, claims, courseID) {
		return
	}

	if err := h.Store.DeleteResult(r.Context(), chi.URLParam(r, "studentId"), courseID); err != nil {
		util.HandleStoreError(w, err, "Result not found")
		return
	}
	util.WriteMessage(w, http.StatusOK, "Result deleted successfully", nil)
}

// canGrade checks a teacher is assigned to courseID. Admins always can.
func (h *ResultHandler) canGrade(ctx context.Context, w http.ResponseWriter, claims *util.CustomClaims, courseID string) bool {
	if claims.Role == shared.RoleAdmin {
		return true
	}

	assigned, err := h.Store.ListAssignments(ctx, claims.UserID)
	if err != nil {
		util.HandleStoreError(w, err, "")
		return false
	}
	for _, a := range assigned {
		if a.CourseID == courseID {
			return true
		}
	}
	util.WriteJSONError(w, http.StatusForbidden, "Access denied: You are not assigned to this course")
	return false
}
