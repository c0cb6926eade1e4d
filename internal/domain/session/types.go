// Package session owns the authenticated session of the client: the
// credential, the user profile, and their durable copies.
package session

import (
	"fmt"
	"slices"
)

// Role is the platform role of a user.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// UserProfile is the authenticated user as returned by /api/users/me/.
type UserProfile struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	// FavoritedCourses is a set of course ids. nil means the server did not
	// send the field at all, which marks an outdated profile shape; an
	// empty favorites list is a non-nil empty slice.
	FavoritedCourses []int `json:"favorited_courses"`
}

// IsOutdated reports whether the profile lacks fields that current servers
// always send, so it must be refreshed before it is trusted.
func (p *UserProfile) IsOutdated() bool {
	return p == nil || p.FavoritedCourses == nil
}

// HasFavorite reports whether courseID is in the favorites set.
func (p *UserProfile) HasFavorite(courseID int) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.FavoritedCourses, courseID)
}

// setFavorite inserts or removes courseID, keeping the set free of duplicates.
func (p *UserProfile) setFavorite(courseID int, on bool) {
	if p.FavoritedCourses == nil {
		p.FavoritedCourses = []int{}
	}
	has := slices.Contains(p.FavoritedCourses, courseID)
	switch {
	case on && !has:
		p.FavoritedCourses = append(p.FavoritedCourses, courseID)
	case !on && has:
		p.FavoritedCourses = slices.DeleteFunc(p.FavoritedCourses, func(id int) bool { return id == courseID })
	}
}

// Clone returns a deep copy of p.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.FavoritedCourses != nil {
		c.FavoritedCourses = slices.Clone(p.FavoritedCourses)
	}
	return &c
}

// State is the lifecycle state of the session.
type State int

const (
	// Anonymous means no credential is held.
	Anonymous State = iota
	// Authenticating means a login is in flight.
	Authenticating
	// Authenticated means a credential is held. The profile may still be
	// loading.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
