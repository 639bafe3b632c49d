package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"uniportal/backend/internal/portalapi/util"
	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

// AuthHandler handles login, registration and password changes for every
// portal role.
type AuthHandler struct {
	Store      store.Store
	Tokens     *util.TokenManager
	BCryptCost int
}

// LoginRequest mirrors the JSON input for POST /{role}s/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterStudentRequest mirrors the JSON input for POST /students/register
type RegisterStudentRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	StudentID    string `json:"studentId" validate:"required"`
	DepartmentID string `json:"department_id" validate:"required"`
	Semester     string `json:"semester"`
}

// RegisterAccountRequest mirrors the JSON input for POST /{teachers,advisors}/register
type RegisterAccountRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	DepartmentID string `json:"department_id"`
}

// ChangePasswordRequest mirrors the JSON input for PATCH /{role}s/{id}/password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Login handles POST /{role}s/login
// Response data: {token, expiresAt, <role>: user}
func (h *AuthHandler) Login(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1. Decode & validate
		var req LoginRequest
		if !util.DecodeAndValidate(w, r, &req) {
			return
		}
		email := normalizeEmail(req.Email)

		// 2. Find account
		var (
			acct *shared.Account
			user interface{}
			err  error
		)
		if role == shared.RoleStudent {
			var s *shared.Student
			s, err = h.Store.FindStudentByEmail(r.Context(), email)
			if err == nil {
				acct, user = &s.Account, s
			}
		} else {
			acct, err = h.Store.FindAccountByEmail(r.Context(), role, email)
			user = acct
		}
		if errors.Is(err, store.ErrNotFound) {
			util.WriteJSONError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if err != nil {
			util.HandleStoreError(w, err, "Account not found")
			return
		}

		// 3. Check password (BCrypt)
		if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
			util.WriteJSONError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		// 4. Issue token
		token, expiresAt, err := h.Tokens.Generate(acct.ID, role)
		if err != nil {
			log.Printf("ERROR: issuing token for %s %s: %v", role, acct.ID, err)
			util.WriteJSONError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		log.Printf("INFO: %s %s logged in", role, acct.ID)
		util.WriteMessage(w, http.StatusOK, "Login successful", map[string]interface{}{
			"token":     token,
			"expiresAt": expiresAt,
			role:        user,
		})
	}
}

// RegisterStudent handles POST /students/register
func (h *AuthHandler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req RegisterStudentRequest
	if !util.DecodeAndValidate(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BCryptCost)
	if err != nil {
		util.WriteJSONError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	s := &shared.Student{
		Account: shared.Account{
			ID:           shared.GenerateID("stu"),
			Name:         strings.TrimSpace(req.Name),
			Email:        normalizeEmail(req.Email),
			PasswordHash: string(hash),
			DepartmentID: req.DepartmentID,
			CreatedAt:    time.Now(),
		},
		StudentID: strings.TrimSpace(req.StudentID),
		Semester:  req.Semester,
		Courses:   []string{},
	}

	if err := h.Store.CreateStudent(r.Context(), s); err != nil {
		if errors.Is(err, store.ErrConflict) {
			util.WriteJSONError(w, http.StatusConflict, "Student with this email or ID already exists")
			return
		}
		util.HandleStoreError(w, err, "")
		return
	}

	util.WriteMessage(w, http.StatusCreated, "Student registered successfully", s)
}

// RegisterAccount handles POST /{teachers,advisors}/register (admin only)
func (h *AuthHandler) RegisterAccount(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireRole(w, r, shared.RoleAdmin) == nil {
			return
		}

		var req RegisterAccountRequest
		if !util.DecodeAndValidate(w, r, &req) {
			return
		}
		if role == shared.RoleAdvisor && req.DepartmentID == "" {
			util.WriteJSONError(w, http.StatusBadRequest, "department_id is required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BCryptCost)
		if err != nil {
			util.WriteJSONError(w, http.StatusInternalServerError, "Failed to process password")
			return
		}

		acct := &shared.Account{
			ID:           shared.GenerateID(role[:3]),
			Name:         strings.TrimSpace(req.Name),
			Email:        normalizeEmail(req.Email),
			PasswordHash: string(hash),
			DepartmentID: req.DepartmentID,
			CreatedAt:    time.Now(),
		}

		if err := h.Store.CreateAccount(r.Context(), role, acct); err != nil {
			if errors.Is(err, store.ErrConflict) {
				util.WriteJSONError(w, http.StatusConflict, "An account with this email already exists")
				return
			}
			util.HandleStoreError(w, err, "")
			return
		}

		util.WriteMessage(w, http.StatusCreated, strings.ToUpper(role[:1])+role[1:]+" registered successfully", acct)
	}
}

// ChangePassword handles PATCH /{role}s/{id}/password. Users may only
// change their own password.
func (h *AuthHandler) ChangePassword(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1. Authorization
		claims := requireRole(w, r, role)
		if claims == nil {
			return
		}
		id := chi.URLParam(r, "id")
		if claims.UserID != id {
			util.WriteJSONError(w, http.StatusForbidden, "Access denied: You can only change your own password")
			return
		}

		// 2. Decode
		var req ChangePasswordRequest
		if !util.DecodeAndValidate(w, r, &req) {
			return
		}

		// 3. Verify old password
		acct, err := h.Store.GetAccount(r.Context(), role, id)
		if err != nil {
			util.HandleStoreError(w, err, "Account not found")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.OldPassword)); err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "Old password is incorrect")
			return
		}

		// 4. Store new hash
		newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.BCryptCost)
		if err != nil {
			util.WriteJSONError(w, http.StatusInternalServerError, "Failed to process password")
			return
		}
		if err := h.Store.SetPasswordHash(r.Context(), role, id, string(newHash)); err != nil {
			util.HandleStoreError(w, err, "Account not found")
			return
		}

		util.WriteMessage(w, http.StatusOK, "Password updated successfully", nil)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
