package service

import (
	"context"
	"log/slog"

	"github.com/xu2799/it-platform-frontend/internal/domain/course"
	"github.com/xu2799/it-platform-frontend/internal/domain/session"
)

// FavoriteService toggles a favorite across the session profile and the
// course cache as one two-phase update: both are patched tentatively,
// then both are confirmed with the server's answer or both are reverted.
type FavoriteService struct {
	session *session.Manager
	cache   *course.Cache
	logger  *slog.Logger
}

// NewFavoriteService creates a FavoriteService.
func NewFavoriteService(s *session.Manager, c *course.Cache, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{session: s, cache: c, logger: logger}
}

// Toggle flips course id in or out of the favorites and returns the
// server's resulting state. A course that is not cached only updates the
// profile.
func (s *FavoriteService) Toggle(ctx context.Context, id int) (bool, error) {
	if !s.session.IsAuthenticated() {
		return false, session.ErrUnauthenticated
	}

	pending, cached := s.cache.Tentative(id, func(c *course.Course) {
		c.IsFavorited = !c.IsFavorited
	})

	favorited, err := s.session.ToggleFavorite(ctx, id)
	if err != nil {
		if cached && !pending.Revert() {
			s.logger.Debug("cache entry rewritten during toggle, revert skipped", "course_id", id)
		}
		return false, err
	}

	if cached {
		s.cache.UpdateCourseFavoriteStatus(id, favorited)
	}
	s.logger.Info("favorite toggled", "course_id", id, "favorited", favorited)
	return favorited, nil
}
