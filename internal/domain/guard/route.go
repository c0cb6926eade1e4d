package guard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xu2799/it-platform-frontend/internal/domain/session"
)

// Route is a navigation target and its access-control metadata.
type Route struct {
	Name string `mapstructure:"name" json:"name" yaml:"name"`
	// Path may contain ":param" segments.
	Path         string `mapstructure:"path" json:"path" yaml:"path"`
	RequiresAuth bool   `mapstructure:"requires_auth" json:"requires_auth,omitempty" yaml:"requires_auth,omitempty"`
	// RequiredRoles, when non-empty, is the allow-list of roles.
	RequiredRoles []session.Role `mapstructure:"required_roles" json:"required_roles,omitempty" yaml:"required_roles,omitempty"`
	// Condition is an optional CEL expression over the user profile that
	// must hold for authenticated routes.
	Condition string `mapstructure:"condition" json:"condition,omitempty" yaml:"condition,omitempty"`
}

// RestrictsRoles reports whether the route has a role allow-list.
func (r Route) RestrictsRoles() bool {
	return len(r.RequiredRoles) > 0
}

// AllowsRole reports whether role is on the allow-list.
func (r Route) AllowsRole(role session.Role) bool {
	return slices.Contains(r.RequiredRoles, role)
}

// DefaultRoutes returns the platform's route table.
func DefaultRoutes() []Route {
	staff := []session.Role{session.RoleInstructor, session.RoleAdmin}
	return []Route{
		{Name: "home", Path: "/"},
		{Name: "courses", Path: "/courses"},
		{Name: "about", Path: "/about"},
		{Name: "login", Path: "/login"},
		{Name: "register", Path: "/register"},
		{Name: "course-detail", Path: "/courses/:id"},
		{Name: "lesson-watch", Path: "/courses/:courseId/lessons/:lessonId"},
		{Name: "create-course", Path: "/create-course", RequiresAuth: true, RequiredRoles: staff},
		{Name: "course-edit", Path: "/courses/:id/edit", RequiresAuth: true, RequiredRoles: staff},
		{Name: "profile", Path: "/profile", RequiresAuth: true},
		{Name: "instructor-dashboard", Path: "/instructor-dashboard", RequiresAuth: true, RequiredRoles: staff},
		{Name: "become-instructor", Path: "/become-instructor", RequiresAuth: true, RequiredRoles: []session.Role{session.RoleStudent}},
		{Name: "admin-applications", Path: "/admin/applications", RequiresAuth: true, RequiredRoles: []session.Role{session.RoleAdmin}},
		{Name: "favorites", Path: "/favorites", RequiresAuth: true},
	}
}

// RouteTable indexes routes by name and path.
type RouteTable struct {
	routes []Route
	byName map[string]int
}

// NewRouteTable builds a table. Names must be unique and non-empty, and
// every path must start with "/".
func NewRouteTable(routes []Route) (*RouteTable, error) {
	t := &RouteTable{
		routes: slices.Clone(routes),
		byName: make(map[string]int, len(routes)),
	}
	for i, r := range t.routes {
		if r.Name == "" {
			return nil, fmt.Errorf("route %d: empty name", i)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route %q: path %q must start with /", r.Name, r.Path)
		}
		if _, dup := t.byName[r.Name]; dup {
			return nil, fmt.Errorf("route %q: duplicate name", r.Name)
		}
		for _, role := range r.RequiredRoles {
			if !role.Valid() {
				return nil, fmt.Errorf("route %q: unknown role %q", r.Name, role)
			}
		}
		t.byName[r.Name] = i
	}
	return t, nil
}

// Lookup returns the route named name.
func (t *RouteTable) Lookup(name string) (Route, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

// Match returns the first route whose path pattern matches path.
func (t *RouteTable) Match(path string) (Route, bool) {
	segs := splitPath(path)
	for _, r := range t.routes {
		if matchSegments(splitPath(r.Path), segs) {
			return r, true
		}
	}
	return Route{}, false
}

// Resolve accepts a route name or a concrete path.
func (t *RouteTable) Resolve(target string) (Route, bool) {
	if strings.HasPrefix(target, "/") {
		return t.Match(target)
	}
	return t.Lookup(target)
}

// PathOf returns the path of the named route, or "/" if there is none.
func (t *RouteTable) PathOf(name string) string {
	if r, ok := t.Lookup(name); ok {
		return r.Path
	}
	return "/"
}

// Routes returns the routes in table order.
func (t *RouteTable) Routes() []Route {
	return slices.Clone(t.routes)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if p != segs[i] {
			return false
		}
	}
	return true
}
