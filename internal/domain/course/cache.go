package course

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// API paths used by the cache.
const (
	CoursesPath      = "/api/courses/"
	courseDetailPath = "/api/courses/%d/"
	CategoriesPath   = "/api/categories/"
)

// Resource labels reported to the LookupObserver.
const (
	ResourceCourses    = "courses"
	ResourceDetail     = "course_detail"
	ResourceCategories = "categories"
)

// LookupObserver is told about every cache lookup. *telemetry.Metrics
// implements it.
type LookupObserver interface {
	CacheLookup(resource string, hit bool)
}

type noopObserver struct{}

func (noopObserver) CacheLookup(string, bool) {}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithObserver sets the lookup observer.
func WithObserver(o LookupObserver) Option {
	return func(c *Cache) {
		c.observer = o
	}
}

// entry is one cached course. rev changes on every write to the entry so a
// pending optimistic patch can tell whether it is still the latest write.
type entry struct {
	course Course
	rev    uint64
	digest uint64
}

// Cache mirrors the server's courses and categories. It is the only writer
// of its own state, including the staleness flag.
//
// The mutex is never held across a network call. Concurrent fetches are not
// deduplicated: each goes to the network and the last response to arrive
// wins the wholesale replace. Callers always receive copies.
type Cache struct {
	mu         sync.Mutex
	courses    []*entry
	categories []Category
	stale      bool
	rev        uint64

	api      outbound.API
	logger   *slog.Logger
	observer LookupObserver
}

// NewCache creates an empty cache. It starts stale, so the first plain
// list request goes to the network.
func NewCache(api outbound.API, opts ...Option) *Cache {
	c := &Cache{
		api:      api,
		stale:    true,
		logger:   slog.Default(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCourses returns the course list for filter. A plain filter is
// answered from the cache when the cache is fresh and non-empty; anything
// else goes to the network and replaces the cached list wholesale.
//
// A plain fetch clears the stale flag. A filtered fetch sets it, because the
// cached list then no longer mirrors the unfiltered server list. On failure
// the cached list is cleared and the error returned.
func (c *Cache) FetchCourses(ctx context.Context, filter Filter) ([]Course, error) {
	plain := filter.IsPlain()

	c.mu.Lock()
	if plain && !c.stale && len(c.courses) > 0 {
		out := c.snapshotLocked()
		c.mu.Unlock()
		c.observer.CacheLookup(ResourceCourses, true)
		c.logger.Debug("course list served from cache", "count", len(out))
		return out, nil
	}
	c.mu.Unlock()
	c.observer.CacheLookup(ResourceCourses, false)

	c.logger.Debug("fetching courses", "filter", map[string]string(filter))
	body, err := c.api.GetRaw(ctx, CoursesPath, filter.Values())
	var courses []Course
	var dropped int
	if err == nil {
		courses, dropped, err = decodeCourses(body)
	}
	if err != nil {
		c.mu.Lock()
		c.courses = nil
		c.mu.Unlock()
		c.logger.Warn("failed to fetch courses", "error", err)
		return nil, fmt.Errorf("fetch courses: %w", err)
	}
	if dropped > 0 {
		c.logger.Warn("dropped malformed course entries", "count", dropped)
	}

	c.mu.Lock()
	previous := make(map[int]*entry, len(c.courses))
	for _, e := range c.courses {
		previous[e.course.ID] = e
	}
	entries := make([]*entry, len(courses))
	changed := 0
	for i, course := range courses {
		if old, ok := previous[course.ID]; ok {
			entries[i] = c.replaceLocked(old, course)
		} else {
			entries[i] = c.newEntryLocked(course)
		}
		if entries[i] != previous[course.ID] {
			changed++
		}
	}
	c.courses = entries
	c.stale = !plain
	out := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("courses fetched", "count", len(out), "changed", changed, "filtered", !plain)
	return out, nil
}

// FetchCourseDetail returns the full record of course id. A cached full
// record is returned as is while the cache is fresh; otherwise the record is
// fetched and replaces the cached entry wholesale, or is appended.
//
// Summary-only fields the detail endpoint does not send are lost by the
// replace.
func (c *Cache) FetchCourseDetail(ctx context.Context, id int) (Course, error) {
	c.mu.Lock()
	if e := c.findLocked(id); e != nil && !c.stale && e.course.IsFull() {
		out := e.course.Clone()
		c.mu.Unlock()
		c.observer.CacheLookup(ResourceDetail, true)
		return out, nil
	}
	c.mu.Unlock()
	c.observer.CacheLookup(ResourceDetail, false)

	body, err := c.api.GetRaw(ctx, fmt.Sprintf(courseDetailPath, id), nil)
	if err != nil {
		c.logger.Warn("failed to fetch course detail", "course_id", id, "error", err)
		return Course{}, fmt.Errorf("fetch course %d: %w", id, err)
	}
	var detail Course
	if err := json.Unmarshal(body, &detail); err != nil {
		return Course{}, fmt.Errorf("fetch course %d: %w", id, err)
	}
	if n := detail.Malformed(); n > 0 {
		c.logger.Warn("dropped malformed modules and lessons", "course_id", id, "count", n)
	}
	if detail.ID == 0 {
		detail.ID = id
	}
	if detail.Modules == nil {
		detail.Modules = []Module{}
	}

	c.mu.Lock()
	var e *entry
	if i := c.indexLocked(detail.ID); i >= 0 {
		e = c.replaceLocked(c.courses[i], detail)
		c.courses[i] = e
	} else {
		e = c.newEntryLocked(detail)
		c.courses = append(c.courses, e)
	}
	out := e.course.Clone()
	c.mu.Unlock()

	c.logger.Debug("course detail fetched", "course_id", detail.ID, "modules", len(detail.Modules))
	return out, nil
}

// FetchCategories returns the categories, fetching them only once. A
// non-empty cached list is returned without any staleness check.
func (c *Cache) FetchCategories(ctx context.Context) ([]Category, error) {
	c.mu.Lock()
	if len(c.categories) > 0 {
		out := slices.Clone(c.categories)
		c.mu.Unlock()
		c.observer.CacheLookup(ResourceCategories, true)
		return out, nil
	}
	c.mu.Unlock()
	c.observer.CacheLookup(ResourceCategories, false)

	body, err := c.api.GetRaw(ctx, CategoriesPath, nil)
	if err != nil {
		c.logger.Warn("failed to fetch categories", "error", err)
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	cats, err := decodeCategories(body)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}

	c.mu.Lock()
	c.categories = cats
	out := slices.Clone(cats)
	c.mu.Unlock()
	return out, nil
}

// UpdateCourseLikeStatus patches the like state of a cached course. Call it
// after the server confirmed the change. It reports false, leaving the cache
// untouched, when id is not cached.
func (c *Cache) UpdateCourseLikeStatus(id int, liked bool, likeCount int) bool {
	return c.patch(id, "like", func(course *Course) {
		course.IsLiked = liked
		course.LikeCount = likeCount
	})
}

// UpdateCourseFavoriteStatus patches the favorite state of a cached course.
// It reports false, leaving the cache untouched, when id is not cached.
func (c *Cache) UpdateCourseFavoriteStatus(id int, favorited bool) bool {
	return c.patch(id, "favorite", func(course *Course) {
		course.IsFavorited = favorited
	})
}

func (c *Cache) patch(id int, what string, fn func(*Course)) bool {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		c.logger.Warn("course not cached, update skipped", "course_id", id, "update", what)
		return false
	}
	course := c.courses[i].course.Clone()
	fn(&course)
	c.courses[i] = c.replaceLocked(c.courses[i], course)
	c.mu.Unlock()
	return true
}

// Pending is a tentative patch that can still be undone.
type Pending struct {
	cache    *Cache
	id       int
	rev      uint64
	previous Course
}

// Tentative applies fn to the cached course id ahead of the server's answer.
// It returns false when id is not cached.
func (c *Cache) Tentative(id int, fn func(*Course)) (*Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	previous := c.courses[i].course
	course := previous.Clone()
	fn(&course)
	e := c.newEntryLocked(course)
	c.courses[i] = e
	return &Pending{cache: c, id: id, rev: e.rev, previous: previous}, true
}

// Revert restores the entry as it was before the tentative patch. It does
// nothing, and reports false, if the entry was written again since.
func (p *Pending) Revert() bool {
	c := p.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(p.id)
	if i < 0 || c.courses[i].rev != p.rev {
		return false
	}
	c.courses[i] = c.newEntryLocked(p.previous)
	return true
}

// MarkAsStale forces the next plain list request and detail requests to go
// to the network. Call it after writing server state through a path the
// cache did not observe.
func (c *Cache) MarkAsStale() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
	c.logger.Debug("course cache marked stale")
}

// IsStale reports whether the cached list may not mirror the server.
func (c *Cache) IsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Course returns a copy of the cached course id.
func (c *Cache) Course(id int) (Course, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.findLocked(id)
	if e == nil {
		return Course{}, false
	}
	return e.course.Clone(), true
}

// Courses returns a copy of the cached list.
func (c *Cache) Courses() []Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Categories returns a copy of the cached categories.
func (c *Cache) Categories() []Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.categories)
}

// Digest returns the content digest of the cached course id.
func (c *Cache) Digest(id int) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.findLocked(id)
	if e == nil {
		return 0, false
	}
	return e.digest, true
}

func (c *Cache) newEntryLocked(course Course) *entry {
	c.rev++
	return &entry{course: course, rev: c.rev, digest: digest(course)}
}

// replaceLocked returns old itself when course has the same content, so its
// revision survives and a pending revert of it stays valid. Otherwise it
// returns a new entry.
func (c *Cache) replaceLocked(old *entry, course Course) *entry {
	if d := digest(course); d != 0 && d == old.digest {
		return old
	}
	return c.newEntryLocked(course)
}

func (c *Cache) indexLocked(id int) int {
	return slices.IndexFunc(c.courses, func(e *entry) bool { return e.course.ID == id })
}

func (c *Cache) findLocked(id int) *entry {
	if i := c.indexLocked(id); i >= 0 {
		return c.courses[i]
	}
	return nil
}

func (c *Cache) snapshotLocked() []Course {
	out := make([]Course, len(c.courses))
	for i, e := range c.courses {
		out[i] = e.course.Clone()
	}
	return out
}

func digest(course Course) uint64 {
	data, err := json.Marshal(course)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
