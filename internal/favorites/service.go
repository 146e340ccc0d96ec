// Package favorites keeps each user's set of favorited books. A pair is
// either present or absent; removal is a bulk delete and never fails
// because the pair was missing.
package favorites

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"bookhub/internal/apperr"
	"bookhub/internal/events"
	"bookhub/pkg/models"
)

type Set struct {
	Repo   *Repo
	Events events.Publisher
	Log    *slog.Logger
}

func NewSet(repo *Repo, pub events.Publisher, log *slog.Logger) *Set {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Set{Repo: repo, Events: pub, Log: log}
}

func (s *Set) Add(ctx context.Context, userID, bookID string) (*models.Favorite, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, apperr.Validation("bookId is required")
	}

	ok, err := s.Repo.BookExists(ctx, bookID)
	if err != nil {
		return nil, apperr.Internal("could not add favorite", err)
	}
	if !ok {
		return nil, apperr.NotFound("book not found")
	}

	created, err := s.Repo.Insert(ctx, userID, bookID)
	if err != nil {
		return nil, apperr.Internal("could not add favorite", err)
	}
	if !created {
		return nil, apperr.Conflict("already in favorites")
	}

	f, err := s.Repo.Get(ctx, userID, bookID)
	if err != nil || f == nil {
		return nil, apperr.Internal("could not load favorite", err)
	}

	s.Events.Publish(events.Event{
		Type:   events.FavoriteAdded,
		BookID: bookID,
		At:     time.Now().UTC(),
	})
	return f, nil
}

// Remove deletes the pair if present. Removing an absent pair succeeds.
func (s *Set) Remove(ctx context.Context, userID, bookID string) error {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return apperr.Validation("bookId is required")
	}

	n, err := s.Repo.DeleteAll(ctx, userID, bookID)
	if err != nil {
		return apperr.Internal("could not remove favorite", err)
	}
	if n == 0 {
		s.Log.Debug("favorite already absent", "user_id", userID, "book_id", bookID)
		return nil
	}

	s.Events.Publish(events.Event{
		Type:   events.FavoriteRemoved,
		BookID: bookID,
		At:     time.Now().UTC(),
	})
	return nil
}

func (s *Set) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	out, err := s.Repo.List(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("could not list favorites", err)
	}
	return out, nil
}

func (s *Set) Contains(ctx context.Context, userID, bookID string) (bool, error) {
	ok, err := s.Repo.Exists(ctx, userID, strings.TrimSpace(bookID))
	if err != nil {
		return false, apperr.Internal("could not check favorite", err)
	}
	return ok, nil
}
