package reviews

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"bookhub/internal/apperr"
	"bookhub/internal/books"
	"bookhub/internal/events"
	"bookhub/internal/id"
	"bookhub/internal/validation"
	"bookhub/pkg/models"
)

// BookEnsurer makes sure the reviewed book is cached locally.
type BookEnsurer interface {
	EnsureBook(ctx context.Context, in books.Input) (*models.Book, error)
}

type CreateInput struct {
	BookID    string           `json:"googleId" validate:"required,max=128"`
	Title     string           `json:"title" validate:"required,max=1000"`
	Authors   books.AuthorList `json:"authors"`
	Thumbnail string           `json:"thumbnail" validate:"omitempty,url"`
	Rating    int              `json:"rating" validate:"gte=1,lte=5"`
	Content   string           `json:"content" validate:"min=3,max=5000"`
}

type UpdateInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Content string `json:"content" validate:"min=3,max=5000"`
}

// Service is the only writer of reviews. Every mutation checks that the
// requester is the author.
type Service struct {
	Repo      *Repo
	Books     BookEnsurer
	Validator *validation.Validator
	Events    events.Publisher
	Log       *slog.Logger
}

func NewService(repo *Repo, bk BookEnsurer, v *validation.Validator, pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{Repo: repo, Books: bk, Validator: v, Events: pub, Log: log}
}

func (s *Service) Create(ctx context.Context, authorID string, in CreateInput) (*models.CreatedReview, error) {
	in.BookID = strings.TrimSpace(in.BookID)
	in.Title = strings.TrimSpace(in.Title)
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}

	book, err := s.Books.EnsureBook(ctx, books.Input{
		ID:           in.BookID,
		Title:        in.Title,
		Authors:      string(in.Authors),
		ThumbnailURL: in.Thumbnail,
	})
	if err != nil {
		return nil, err
	}

	reviewID, err := id.Generate(id.ReviewPrefix)
	if err != nil {
		return nil, apperr.Internal("could not create review", err)
	}
	if err := s.Repo.Insert(ctx, models.Review{
		ID:      reviewID,
		BookID:  book.ID,
		UserID:  authorID,
		Rating:  in.Rating,
		Content: in.Content,
	}); err != nil {
		return nil, apperr.Internal("could not create review", err)
	}

	rv, err := s.Repo.GetByID(ctx, reviewID)
	if err != nil || rv == nil {
		return nil, apperr.Internal("could not load review", err)
	}

	s.Log.Info("review created", "review_id", rv.ID, "book_id", book.ID, "user_id", authorID)
	s.Events.Publish(events.Event{
		Type:     events.ReviewCreated,
		UserID:   authorID,
		BookID:   book.ID,
		ReviewID: rv.ID,
		Rating:   rv.Rating,
		At:       time.Now().UTC(),
	})

	return &models.CreatedReview{Review: *rv, Book: book.Summary()}, nil
}

// authorize loads the review and checks that requesterID wrote it.
func (s *Service) authorize(ctx context.Context, requesterID, reviewID, verb string) (*models.Review, error) {
	rv, err := s.Repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, apperr.Internal("could not load review", err)
	}
	if rv == nil {
		return nil, apperr.NotFound("review not found")
	}
	if rv.UserID != requesterID {
		return nil, apperr.Forbidden("you can only " + verb + " your own reviews")
	}
	return rv, nil
}

// CheckEditable reports whether requesterID may edit the review, with the
// same errors Update returns for a missing or foreign review.
func (s *Service) CheckEditable(ctx context.Context, requesterID, reviewID string) error {
	_, err := s.authorize(ctx, requesterID, reviewID, "edit")
	return err
}

func (s *Service) Update(ctx context.Context, requesterID, reviewID string, in UpdateInput) (*models.UserReview, error) {
	rv, err := s.authorize(ctx, requesterID, reviewID, "edit")
	if err != nil {
		return nil, err
	}
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}

	if err := s.Repo.UpdateContent(ctx, rv.ID, in.Rating, in.Content); err != nil {
		return nil, apperr.Internal("could not update review", err)
	}

	out, err := s.Repo.GetWithScore(ctx, rv.ID)
	if err != nil {
		return nil, apperr.Internal("could not load review", err)
	}
	if out == nil {
		// deleted between the write and the read
		return nil, apperr.NotFound("review not found")
	}

	s.Events.Publish(events.Event{
		Type:     events.ReviewUpdated,
		UserID:   requesterID,
		BookID:   out.BookID,
		ReviewID: out.ID,
		Rating:   out.Rating,
		At:       time.Now().UTC(),
	})
	return out, nil
}

func (s *Service) Delete(ctx context.Context, requesterID, reviewID string) error {
	rv, err := s.authorize(ctx, requesterID, reviewID, "delete")
	if err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, rv.ID, requesterID); err != nil {
		if apperr.CodeOf(err) != apperr.CodeInternal {
			return err
		}
		return apperr.Internal("could not delete review", err)
	}

	s.Log.Info("review deleted", "review_id", rv.ID, "user_id", requesterID)
	s.Events.Publish(events.Event{
		Type:     events.ReviewDeleted,
		UserID:   requesterID,
		BookID:   rv.BookID,
		ReviewID: rv.ID,
		At:       time.Now().UTC(),
	})
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.UserReview, error) {
	out, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("could not list reviews", err)
	}
	return out, nil
}

func (s *Service) ListByBook(ctx context.Context, bookID string) ([]models.BookReview, error) {
	out, err := s.Repo.ListByBook(ctx, bookID)
	if err != nil {
		return nil, apperr.Internal("could not list reviews", err)
	}
	return out, nil
}
