// Package session holds the logged-in identity explicitly. A Session is
// created by Login, passed to every dashboard that needs it, and ended by
// Logout; nothing is looked up from ambient storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/shared"
)

// ErrLoggedOut is returned for requests made through an ended session
var ErrLoggedOut = errors.New("session: logged out")

// User is the account object the portal returns at login
type User struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	DepartmentID string   `json:"department_id,omitempty"`
	StudentID    string   `json:"studentId,omitempty"`
	Semester     string   `json:"semester,omitempty"`
	Courses      []string `json:"courses,omitempty"`
}

// Claims mirrors the token the portal issues
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Session is one login's lifetime
type Session struct {
	mu        sync.RWMutex
	token     string
	role      string
	user      User
	claims    *Claims
	loggedOut bool
}

// New builds a session from a token and the user returned with it. The
// token's claims are decoded without verification; the server verifies.
func New(token, role string, user User) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("session: empty token")
	}
	if !shared.IsValidRole(role) {
		return nil, fmt.Errorf("session: unknown role %q", role)
	}

	s := &Session{token: token, role: role, user: user}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		s.claims = claims
		if claims.Role != "" && claims.Role != role {
			return nil, fmt.Errorf("session: token role %q does not match %q", claims.Role, role)
		}
	}
	return s, nil
}

// Token implements restclient.TokenSource
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.loggedOut {
		return "", ErrLoggedOut
	}
	return s.token, nil
}

// Role returns the session's role
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// User returns the logged-in account
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// ExpiresAt returns the token's expiry, if it carries one
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return s.claims.ExpiresAt.Time, true
}

// Expired reports whether the token's expiry is before now
func (s *Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && now.After(exp)
}

// Active reports whether the session has not been logged out
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loggedOut
}

// Logout ends the session. Further requests fail with ErrLoggedOut.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loggedOut = true
	s.token = ""
}

// Client returns a copy of base that authenticates as this session
func (s *Session) Client(base *restclient.Client) *restclient.Client {
	return base.WithTokens(s)
}

// ============================================================================
// Login
// ============================================================================

// Authenticator logs users in against the portal
type Authenticator struct {
	client *restclient.Client
}

// NewAuthenticator uses an unauthenticated client
func NewAuthenticator(client *restclient.Client) *Authenticator {
	return &Authenticator{client: client}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts credentials to /api/{role}s/login and starts a session
func (a *Authenticator) Login(ctx context.Context, role, email, password string) (*Session, error) {
	if !shared.IsValidRole(role) {
		return nil, fmt.Errorf("session: unknown role %q", role)
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("session: email and password are required")
	}

	var data map[string]json.RawMessage
	if _, err := a.client.Post(ctx, "/api/"+role+"s/login", loginRequest{Email: email, Password: password}, &data); err != nil {
		return nil, err
	}

	var token string
	if err := json.Unmarshal(data["token"], &token); err != nil || token == "" {
		return nil, fmt.Errorf("session: login response missing token")
	}

	var user User
	if err := json.Unmarshal(data[role], &user); err != nil {
		return nil, fmt.Errorf("session: login response has malformed %s: %w", role, err)
	}

	return New(token, role, user)
}

// ============================================================================
// Password
// ============================================================================

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword patches /api/{role}s/{id}/password. A mismatched
// confirmation is rejected locally.
func (s *Session) ChangePassword(ctx context.Context, base *restclient.Client, oldPassword, newPassword, confirmPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return reconcile.Invalid("password", "Old and new password are required.")
	}
	if newPassword != confirmPassword {
		return reconcile.Invalid("confirmPassword", "New password and confirm password do not match.")
	}

	path := restclient.PathEscape("/api/"+s.Role()+"s", s.User().ID, "password")
	_, err := s.Client(base).Patch(ctx, path, changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}, nil)
	return err
}
