package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the required role for the request.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/passes" && method == http.MethodGet:
		// Catalogue is public.
		return "", false
	case method == http.MethodGet && isPassDetailPath(path):
		// Single-pass details are public, like the catalogue.
		return "", false
	case path == "/api/v1/passes/calculate":
		return "", false
	case strings.HasPrefix(path, "/api/v1/settlement/"):
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/v1/claims/") && method == http.MethodPut:
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/v1/users/"):
		return RoleUser, true
	case strings.HasPrefix(path, "/api/v1/passes/"):
		return RoleUser, true
	case strings.HasPrefix(path, "/api/v1/referrals/"):
		return RoleUser, true
	case strings.HasPrefix(path, "/api/v1/transactions"):
		return RoleUser, true
	case strings.HasPrefix(path, "/api/v1/statements"):
		return RoleUser, true
	case strings.HasPrefix(path, "/api/v1/exports/"):
		return RoleUser, true
	case strings.HasPrefix(path, "/api/v1/claims"):
		return RoleUser, true
	case strings.HasPrefix(path, "/api/v1/notifications"):
		return RoleUser, true
	default:
		return RoleUser, true
	}
}

// isPassDetailPath matches /api/v1/passes/{id} with a numeric id, so
// that /api/v1/passes/active and /api/v1/passes/history stay gated.
func isPassDetailPath(path string) bool {
	rest, ok := strings.CutPrefix(path, "/api/v1/passes/")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
