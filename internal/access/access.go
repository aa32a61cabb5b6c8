// Package access maps dashboard paths to the roles allowed to open them.
package access

import (
	"path"
	"strings"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// LoginPath is where every rejected navigation lands.
const LoginPath = "/login"

// Rule grants a path prefix to a set of roles. An empty role set means any
// authenticated user.
type Rule struct {
	Prefix string
	Roles  []domain.Role
}

// Decision is the outcome of resolving a path for a caller.
type Decision struct {
	Path     string `json:"path"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
	Home     string `json:"home,omitempty"`
}

var rules = []Rule{
	{Prefix: "/admin", Roles: []domain.Role{domain.RoleAdmin}},
	{Prefix: "/operator", Roles: []domain.Role{domain.RoleOperator}},
	{Prefix: "/dashboard", Roles: []domain.Role{domain.RoleUser}},
	{Prefix: "/incidents"},
	{Prefix: "/profile"},
}

var dashboards = map[domain.Role]string{
	domain.RoleAdmin:    "/admin",
	domain.RoleOperator: "/operator",
	domain.RoleUser:     "/dashboard",
}

// DefaultDashboard returns the landing page of a role, or LoginPath for an
// unknown one.
func DefaultDashboard(role domain.Role) string {
	if p, ok := dashboards[role]; ok {
		return p
	}
	return LoginPath
}

// Match returns the rule protecting path, if any.
func Match(p string) (Rule, bool) {
	p = normalize(p)
	for _, r := range rules {
		if p == r.Prefix || strings.HasPrefix(p, r.Prefix+"/") {
			return r, true
		}
	}
	return Rule{}, false
}

// Resolve decides whether a caller may open path. An empty role stands for
// an anonymous visitor. Unprotected paths are always allowed.
func Resolve(role domain.Role, p string) Decision {
	d := Decision{Path: normalize(p)}
	if role.Valid() {
		d.Home = DefaultDashboard(role)
	}

	rule, protected := Match(d.Path)
	if !protected {
		d.Allowed = true
		return d
	}
	if !role.Valid() || !rule.permits(role) {
		d.Redirect = LoginPath
		return d
	}
	d.Allowed = true
	return d
}

func (r Rule) permits(role domain.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// normalize reduces p to the form the route table is written in. The
// frontend router matches case-insensitively, so the table must too.
func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.ToLower(strings.TrimSpace(p))
	return path.Clean("/" + p)
}
