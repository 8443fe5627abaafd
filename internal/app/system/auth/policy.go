package auth

import (
	"path"
	"strings"
)

// Access is the outcome of classifying a request path.
type Access int

const (
	// AccessUnprotected paths match no list and pass through.
	AccessUnprotected Access = iota
	// AccessPublic paths are explicitly open.
	AccessPublic
	// AccessProtected paths require a valid session.
	AccessProtected
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	}
	return "unprotected"
}

// Route is the classification of one request path.
type Route struct {
	Access Access
	Role   string // required role, "" when any signed-in user may pass
	API    bool   // JSON responses instead of redirects
}

// Policy is the prefix table the session gate enforces. Prefixes match whole
// path segments: "/faculty" covers "/faculty" and "/faculty/x" but not
// "/facultyx". The prefix "/" matches only the root path.
type Policy struct {
	Public    []string
	Protected []string
	// Roles reserves protected prefixes for one role. The longest matching
	// prefix decides.
	Roles map[string]string
	// DefaultDeny treats paths that match no list as protected.
	DefaultDeny bool
}

// DefaultPolicy returns the portal's path table.
func DefaultPolicy() Policy {
	return Policy{
		Public: []string{
			"/",
			"/login",
			"/register",
			"/api/auth",
			"/api/projects",
			"/api/admin/db-status",
			"/health",
			"/ready",
			"/readyz",
			"/livez",
			"/metrics",
		},
		Protected: []string{
			"/dashboard",
			"/faculty",
			"/student",
			"/api/dashboard",
			"/api/faculty",
			"/api/student",
			"/api/me",
		},
		Roles: map[string]string{
			"/faculty":     "faculty",
			"/api/faculty": "faculty",
			"/student":     "student",
			"/api/student": "student",
		},
	}
}

// Classify places p in exactly one access class. Public wins over protected.
func (pol Policy) Classify(p string) Route {
	p = cleanPath(p)
	route := Route{API: isAPIPath(p)}

	if _, ok := longestMatch(p, pol.Public); ok {
		route.Access = AccessPublic
		return route
	}

	if _, ok := longestMatch(p, pol.Protected); ok {
		route.Access = AccessProtected
		route.Role = pol.roleFor(p)
		return route
	}

	if pol.DefaultDeny {
		route.Access = AccessProtected
		return route
	}
	route.Access = AccessUnprotected
	return route
}

func (pol Policy) roleFor(p string) string {
	best := ""
	role := ""
	for prefix, r := range pol.Roles {
		if matchPrefix(p, prefix) && len(prefix) > len(best) {
			best, role = prefix, r
		}
	}
	return role
}

func longestMatch(p string, prefixes []string) (string, bool) {
	best := ""
	found := false
	for _, prefix := range prefixes {
		if matchPrefix(p, prefix) && len(prefix) >= len(best) {
			best, found = prefix, true
		}
	}
	return best, found
}

func matchPrefix(p, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return p == "/"
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}

// cleanPath resolves dot segments and duplicate slashes so "/student/../faculty"
// is classified as "/faculty".
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
