package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// backend is an in-process stand-in for the course platform REST API.
// Like the real server, it rejects a request carrying an unknown token even
// on public endpoints.
type backend struct {
	mu         sync.Mutex
	password   map[string]string
	tokens     map[string]string // token -> username
	profiles   map[string]map[string]any
	favorites  map[string]map[int]bool
	courses    []map[string]any
	failToggle bool
	calls      map[string]int
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{
		password: map[string]string{"alice": "pw", "ivan": "pw"},
		tokens:   map[string]string{},
		profiles: map[string]map[string]any{
			"alice": {"id": 7, "username": "alice", "role": "student"},
			"ivan":  {"id": 8, "username": "ivan", "role": "instructor"},
		},
		favorites: map[string]map[int]bool{"alice": {}, "ivan": {}},
		courses: []map[string]any{
			{"id": 1, "title": "Go", "category": 1, "like_count": 4},
			{"id": 3, "title": "SQL", "category": 2, "like_count": 1},
		},
		calls: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token-auth/", b.tokenAuth)
	mux.HandleFunc("GET /api/users/me/", b.me)
	mux.HandleFunc("GET /api/courses/", b.listCourses)
	mux.HandleFunc("GET /api/courses/{id}/", b.courseDetail)
	mux.HandleFunc("GET /api/categories/", b.categories)
	mux.HandleFunc("POST /api/courses/{id}/toggle-favorite/", b.toggleFavorite)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

// revokeAll invalidates every issued token, as a server-side logout would.
func (b *backend) revokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]string{}
}

func (b *backend) setFailToggle(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failToggle = v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// authenticate returns the user of the request's token. ok is false when a
// response was already written.
func (b *backend) authenticate(w http.ResponseWriter, r *http.Request, required bool) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if required {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return "", false
		}
		return "", true
	}
	token := strings.TrimPrefix(header, "Token ")
	b.mu.Lock()
	user, ok := b.tokens[token]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
		return "", false
	}
	return user, true
}

func (b *backend) tokenAuth(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.password[creds.Username]; !ok || pw != creds.Password {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Unable to log in with provided credentials."}})
		return
	}
	token := "T" + strconv.Itoa(len(b.tokens)+1)
	b.tokens[token] = creds.Username
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (b *backend) me(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authenticate(w, r, true)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := map[string]any{}
	for k, v := range b.profiles[user] {
		p[k] = v
	}
	favs := []int{}
	for id, on := range b.favorites[user] {
		if on {
			favs = append(favs, id)
		}
	}
	p["favorited_courses"] = favs
	writeJSON(w, http.StatusOK, p)
}

func (b *backend) listCourses(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authenticate(w, r, false)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	search := r.URL.Query().Get("search")
	var out []map[string]any
	for _, c := range b.courses {
		if search != "" && !strings.Contains(strings.ToLower(c["title"].(string)), strings.ToLower(search)) {
			continue
		}
		out = append(out, b.decorate(c, user))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "results": out})
}

func (b *backend) courseDetail(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authenticate(w, r, false)
	if !ok {
		return
	}
	id, _ := strconv.Atoi(r.PathValue("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.courses {
		if c["id"] == id {
			d := b.decorate(c, user)
			d["modules"] = []any{
				map[string]any{"id": id * 10, "title": "Intro", "order": 1, "lessons": []any{
					map[string]any{"id": id * 100, "title": "Welcome", "order": 1},
				}},
			}
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (b *backend) decorate(c map[string]any, user string) map[string]any {
	d := map[string]any{}
	for k, v := range c {
		d[k] = v
	}
	d["is_liked"] = false
	d["is_favorited"] = b.favorites[user][c["id"].(int)]
	return d
}

func (b *backend) categories(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authenticate(w, r, false); !ok {
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "name": "Backend", "slug": "backend"},
		{"id": 2, "name": "Data", "slug": "data"},
	})
}

func (b *backend) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authenticate(w, r, true)
	if !ok {
		return
	}
	id, _ := strconv.Atoi(r.PathValue("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failToggle {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		return
	}
	on := !b.favorites[user][id]
	b.favorites[user][id] = on
	writeJSON(w, http.StatusOK, map[string]bool{"favorited": on})
}
