// Package handlers implements the portal's REST endpoints on top of a
// store.Store.
package handlers

import (
	"errors"
	"net/http"

	"uniportal/backend/internal/portalapi/util"
	"uniportal/backend/internal/store"
)

// requireRole returns the caller's claims when their role is one of roles.
// Otherwise it writes 401/403 and returns nil.
func requireRole(w http.ResponseWriter, r *http.Request, roles ...string) *util.CustomClaims {
	claims := util.ClaimsFromContext(r.Context())
	if claims == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
		return nil
	}

	for _, role := range roles {
		if claims.Role == role {
			return claims
		}
	}
	util.WriteJSONError(w, http.StatusForbidden, "Access denied: insufficient permissions")
	return nil
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrConflict)
}
