package books

import (
	"context"
	"log/slog"
	"strings"

	"bookhub/internal/apperr"
	"bookhub/pkg/database"
	"bookhub/pkg/models"
	"bookhub/pkg/retry"
)

// Cache keeps the local books table in step with the catalog. Rows are a
// cache of catalog display data, never edited independently.
type Cache struct {
	Repo   *Repo
	Policy retry.Policy
	Log    *slog.Logger
}

func NewCache(repo *Repo, policy retry.Policy, log *slog.Logger) *Cache {
	return &Cache{Repo: repo, Policy: policy, Log: log}
}

// EnsureBook creates the book on first touch and refreshes its display
// fields afterwards. Lock contention and create races are retried under
// the cache's policy before the failure surfaces as Internal.
func (c *Cache) EnsureBook(ctx context.Context, in Input) (*models.Book, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	if in.ID == "" {
		return nil, apperr.Validation("book id is required")
	}
	if in.Title == "" {
		return nil, apperr.Validation("book title is required")
	}

	attempt := 0
	var book *models.Book
	err := retry.Do(ctx, c.Policy, database.IsTransient, func(ctx context.Context) error {
		attempt++
		if attempt > 1 && c.Log != nil {
			c.Log.Debug("retrying book upsert", "book_id", in.ID, "attempt", attempt)
		}

		if err := c.Repo.Upsert(ctx, in); err != nil {
			return err
		}
		b, err := c.Repo.GetByID(ctx, in.ID)
		if err != nil {
			return err
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("could not save book", err)
	}
	if book == nil {
		return nil, apperr.Internal("could not save book", nil)
	}
	return book, nil
}
