package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xu2799/it-platform-frontend/internal/domain/session"
)

// fakeSession is a scripted Session. FetchProfile installs next or, when
// fetchErr is set, logs out.
type fakeSession struct {
	token    string
	profile  *session.UserProfile
	next     *session.UserProfile
	fetchErr error
	fetches  int
}

func (s *fakeSession) HasToken() bool        { return s.token != "" }
func (s *fakeSession) IsAuthenticated() bool { return s.token != "" }

func (s *fakeSession) Profile() *session.UserProfile { return s.profile.Clone() }

func (s *fakeSession) FetchProfile(context.Context) error {
	s.fetches++
	if s.fetchErr != nil {
		s.token, s.profile = "", nil
		return s.fetchErr
	}
	s.profile = s.next
	return nil
}

type staticConditions struct {
	result bool
	err    error
	calls  int
}

func (c *staticConditions) EvaluateCondition(context.Context, string, *session.UserProfile) (bool, error) {
	c.calls++
	return c.result, c.err
}

func profile(role session.Role) *session.UserProfile {
	return &session.UserProfile{ID: 1, Username: "u", Role: role, FavoritedCourses: []int{}}
}

func newTestGuard(s Session, opts ...Option) *Guard {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(s, Config{}, opts...)
}

func route(t *testing.T, name string) Route {
	t.Helper()
	table, err := NewRouteTable(DefaultRoutes())
	if err != nil {
		t.Fatal(err)
	}
	r, ok := table.Lookup(name)
	if !ok {
		t.Fatalf("route %q not in default table", name)
	}
	return r
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		session *fakeSession
		route   string
		want    Decision
		fetches int
	}{
		{
			name:    "public route, anonymous",
			session: &fakeSession{},
			route:   "courses",
			want:    Decision{Allow: true, Reason: ReasonAllowed},
		},
		{
			name:    "protected route, anonymous",
			session: &fakeSession{},
			route:   "profile",
			want:    Decision{Redirect: "login", Reason: ReasonUnauthenticated},
		},
		{
			name:    "protected route, fresh profile",
			session: &fakeSession{token: "T", profile: profile(session.RoleStudent)},
			route:   "favorites",
			want:    Decision{Allow: true, Reason: ReasonAllowed},
		},
		{
			name:    "missing profile is refreshed first",
			session: &fakeSession{token: "T", next: profile(session.RoleAdmin)},
			route:   "admin-applications",
			want:    Decision{Allow: true, Reason: ReasonAllowed},
			fetches: 1,
		},
		{
			name:    "outdated profile is refreshed before the role check",
			session: &fakeSession{token: "T", profile: &session.UserProfile{ID: 1, Role: session.RoleStudent}, next: profile(session.RoleInstructor)},
			route:   "create-course",
			want:    Decision{Allow: true, Reason: ReasonAllowed},
			fetches: 1,
		},
		{
			name:    "failed refresh redirects to login",
			session: &fakeSession{token: "T", fetchErr: errors.New("boom")},
			route:   "profile",
			want:    Decision{Redirect: "login", Reason: ReasonProfileRefreshFailed},
			fetches: 1,
		},
		{
			name:    "public route does not refresh",
			session: &fakeSession{token: "T"},
			route:   "course-detail",
			want:    Decision{Allow: true, Reason: ReasonAllowed},
		},
		{
			name:    "wrong role",
			session: &fakeSession{token: "T", profile: profile(session.RoleStudent)},
			route:   "instructor-dashboard",
			want:    Decision{Redirect: "home", AccessDenied: true, Reason: ReasonRoleDenied},
		},
		{
			name:    "instructor cannot become instructor",
			session: &fakeSession{token: "T", profile: profile(session.RoleInstructor)},
			route:   "become-instructor",
			want:    Decision{Redirect: "home", AccessDenied: true, Reason: ReasonRoleDenied},
		},
		{
			name:    "login while authenticated",
			session: &fakeSession{token: "T", profile: profile(session.RoleStudent)},
			route:   "login",
			want:    Decision{Redirect: "courses", Reason: ReasonAlreadyAuthenticated},
		},
		{
			name:    "register while authenticated",
			session: &fakeSession{token: "T"},
			route:   "register",
			want:    Decision{Redirect: "courses", Reason: ReasonAlreadyAuthenticated},
		},
		{
			name:    "login while anonymous",
			session: &fakeSession{},
			route:   "login",
			want:    Decision{Allow: true, Reason: ReasonAllowed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard(tt.session)
			got := g.Check(context.Background(), route(t, tt.route))
			if got.Allow != tt.want.Allow || got.Redirect != tt.want.Redirect ||
				got.AccessDenied != tt.want.AccessDenied || got.Reason != tt.want.Reason {
				t.Errorf("Check() = %+v, want %+v", got, tt.want)
			}
			if tt.session.fetches != tt.fetches {
				t.Errorf("FetchProfile calls = %d, want %d", tt.session.fetches, tt.fetches)
			}
		})
	}
}

func TestCheck_Conditions(t *testing.T) {
	r := Route{Name: "veteran", Path: "/veteran", RequiresAuth: true, Condition: "size(user.favorited_courses) > 2"}
	sess := &fakeSession{token: "T", profile: profile(session.RoleStudent)}

	t.Run("holds", func(t *testing.T) {
		cond := &staticConditions{result: true}
		if d := newTestGuard(sess, WithConditions(cond)).Check(context.Background(), r); !d.Allow {
			t.Errorf("Check() = %+v, want allow", d)
		}
	})

	t.Run("fails", func(t *testing.T) {
		cond := &staticConditions{}
		d := newTestGuard(sess, WithConditions(cond)).Check(context.Background(), r)
		if d.Allow || !d.AccessDenied || d.Reason != ReasonConditionDenied {
			t.Errorf("Check() = %+v", d)
		}
	})

	t.Run("evaluation error denies", func(t *testing.T) {
		cond := &staticConditions{result: true, err: errors.New("bad")}
		if d := newTestGuard(sess, WithConditions(cond)).Check(context.Background(), r); d.Allow {
			t.Errorf("Check() = %+v, want deny", d)
		}
	})

	t.Run("no evaluator denies", func(t *testing.T) {
		if d := newTestGuard(sess).Check(context.Background(), r); d.Allow {
			t.Errorf("Check() = %+v, want deny", d)
		}
	})

	t.Run("role denial skips the condition", func(t *testing.T) {
		cond := &staticConditions{result: true}
		restricted := r
		restricted.RequiredRoles = []session.Role{session.RoleAdmin}
		newTestGuard(sess, WithConditions(cond)).Check(context.Background(), restricted)
		if cond.calls != 0 {
			t.Errorf("condition evaluated %d times", cond.calls)
		}
	})
}

func TestNew_CustomConfig(t *testing.T) {
	g := New(&fakeSession{}, Config{LoginRoute: "signin"}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	d := g.Check(context.Background(), Route{Name: "p", Path: "/p", RequiresAuth: true})
	if d.Redirect != "signin" {
		t.Errorf("Redirect = %q, want signin", d.Redirect)
	}
	if g.cfg.LandingRoute != "courses" {
		t.Errorf("LandingRoute default not applied: %q", g.cfg.LandingRoute)
	}
}
