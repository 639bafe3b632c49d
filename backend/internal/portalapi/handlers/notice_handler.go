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

// NoticeHandler serves the public notice board
type NoticeHandler struct {
	Store store.Store
}

// CreateNoticeRequest mirrors the JSON input for POST /notices
type CreateNoticeRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// ListNotices handles GET /notices (public)
// The list is returned under "notices", not "data".
func (h *NoticeHandler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Store.ListNotices(r.Context())
	if err != nil {
		util.HandleStoreError(w, err, "")
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"notices": notices,
	})
}

// CreateNotice handles POST /notices (admin)
func (h *NoticeHandler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdmin) == nil {
		return
	}

	var req CreateNoticeRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}
	title, description := strings.TrimSpace(req.Title), strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "Title and description are required")
		return
	}

	n := &shared.Notice{
		ID:          shared.GenerateID("ntc"),
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := h.Store.CreateNotice(r.Context(), n); err != nil {
		util.HandleStoreError(w, err, "")
		return
	}
	util.WriteMessage(w, http.StatusCreated, "Notice added successfully", n)
}

// DeleteNotice handles DELETE /notices/{id} (admin)
func (h *NoticeHandler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	if requireRole(w, r, shared.RoleAdmin) == nil {
		return
	}

	if err := h.Store.DeleteNotice(r.Context(), chi.URLParam(r, "id")); err != nil {
		util.HandleStoreError(w, err, "Notice not found")
		return
	}
	util.WriteMessage(w, http.StatusOK, "Notice deleted successfully", nil)
}
