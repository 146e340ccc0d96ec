package books

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"bookhub/internal/apperr"
	"bookhub/internal/catalog"
	"bookhub/pkg/models"
)

// Catalog is the external source of book display data.
type Catalog interface {
	Search(ctx context.Context, query string) ([]catalog.Volume, error)
	Get(ctx context.Context, id string) (*catalog.Volume, error)
}

// ReviewLister supplies the local reviews shown on a book page.
type ReviewLister interface {
	ListByBook(ctx context.Context, bookID string) ([]models.BookReview, error)
}

// Page is a catalog volume plus what bookhub knows locally about it.
type Page struct {
	catalog.Volume
	Local LocalData `json:"local"`
}

type LocalData struct {
	Reviews []models.BookReview `json:"reviews"`
}

type SearchResult struct {
	Results []catalog.Volume `json:"results"`
	Total   int              `json:"total"`
}

type Service struct {
	Catalog Catalog
	Cache   *Cache
	Reviews ReviewLister
	Log     *slog.Logger
}

func NewService(cat Catalog, cache *Cache, reviews ReviewLister, log *slog.Logger) *Service {
	return &Service{Catalog: cat, Cache: cache, Reviews: reviews, Log: log}
}

// Page loads a volume from the catalog, refreshes the local row and
// attaches local reviews. Any catalog failure reads as NotFound.
func (s *Service) Page(ctx context.Context, id string) (*Page, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation("book id is required")
	}

	vol, err := s.Catalog.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			s.Log.Warn("catalog lookup failed", "book_id", id, "error", err)
		}
		return nil, apperr.NotFound("book not found")
	}

	title := vol.Title
	if title == "" {
		title = id
	}
	if _, err := s.Cache.EnsureBook(ctx, Input{
		ID:           vol.ID,
		Title:        title,
		Authors:      vol.AuthorLine(),
		Description:  vol.Description,
		ThumbnailURL: vol.Thumbnail,
	}); err != nil {
		return nil, err
	}

	reviews, err := s.Reviews.ListByBook(ctx, vol.ID)
	if err != nil {
		return nil, apperr.Internal("could not load reviews", err)
	}

	return &Page{Volume: *vol, Local: LocalData{Reviews: reviews}}, nil
}

// Search queries the catalog. An empty query or a failing catalog yields
// an empty result.
func (s *Service) Search(ctx context.Context, query string) SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{Results: []catalog.Volume{}}
	}

	vols, err := s.Catalog.Search(ctx, query)
	if err != nil {
		s.Log.Warn("catalog search failed", "query", query, "error", err)
		return SearchResult{Results: []catalog.Volume{}}
	}
	return SearchResult{Results: vols, Total: len(vols)}
}
