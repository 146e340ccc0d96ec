package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookhub/internal/apperr"
	"bookhub/pkg/models"
)

const guestName = "Guest"

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Insert(ctx context.Context, rv models.Review) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (id, book_id, user_id, rating, content)
		VALUES (?, ?, ?, ?, ?)
	`, rv.ID, rv.BookID, rv.UserID, rv.Rating, rv.Content)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, book_id, user_id, rating, content, created_at
		FROM reviews
		WHERE id = ?
	`, id)

	var rv models.Review
	if err := row.Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &rv.Content, &rv.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &rv, nil
}

func (r *Repo) UpdateContent(ctx context.Context, id string, rating int, content string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE reviews
		SET rating = ?, content = ?
		WHERE id = ?
	`, rating, content, id)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// Delete removes the review and its votes in one transaction, after
// checking that requesterID wrote it.
func (r *Repo) Delete(ctx context.Context, id, requesterID string) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var owner string
	if err = tx.QueryRowContext(ctx, `SELECT user_id FROM reviews WHERE id = ?`, id).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("review not found")
		}
		return fmt.Errorf("load review owner: %w", err)
	}
	if owner != requesterID {
		return apperr.Forbidden("you can only delete your own reviews")
	}

	// votes reference the review, so they go first
	if _, err = tx.ExecContext(ctx, `DELETE FROM votes WHERE review_id = ?`, id); err != nil {
		return fmt.Errorf("delete review votes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete review: %w", err)
	}
	return nil
}

const selectUserReview = `
	SELECT r.id, r.book_id, r.user_id, r.rating, r.content, r.created_at,
	       b.id, b.title, b.authors, b.thumbnail_url,
	       (SELECT COALESCE(SUM(v.value), 0) FROM votes v WHERE v.review_id = r.id),
	       (SELECT COUNT(*) FROM votes v WHERE v.review_id = r.id)
	FROM reviews r
	JOIN books b ON b.id = r.book_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanUserReview(s scanner) (*models.UserReview, error) {
	var rv models.UserReview
	err := s.Scan(
		&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &rv.Content, &rv.CreatedAt,
		&rv.Book.ID, &rv.Book.Title, &rv.Book.Authors, &rv.Book.ThumbnailURL,
		&rv.Score, &rv.VotesCount,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// GetWithScore returns a review with its book and current vote tally.
func (r *Repo) GetWithScore(ctx context.Context, id string) (*models.UserReview, error) {
	rv, err := scanUserReview(r.DB.QueryRowContext(ctx, selectUserReview+`WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review with score: %w", err)
	}
	return rv, nil
}

// ListByUser returns the user's reviews, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]models.UserReview, error) {
	rows, err := r.DB.QueryContext(ctx, selectUserReview+`
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}
	defer rows.Close()

	out := []models.UserReview{}
	for rows.Next() {
		rv, err := scanUserReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user review: %w", err)
		}
		out = append(out, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user reviews rows: %w", err)
	}
	return out, nil
}

// ListByBook returns a book's reviews with author display names, newest
// first.
func (r *Repo) ListByBook(ctx context.Context, bookID string) ([]models.BookReview, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.rating, r.content, r.created_at, u.id, u.name,
		       (SELECT COALESCE(SUM(v.value), 0) FROM votes v WHERE v.review_id = r.id),
		       (SELECT COUNT(*) FROM votes v WHERE v.review_id = r.id)
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = ?
		ORDER BY r.created_at DESC, r.rowid DESC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list book reviews: %w", err)
	}
	defer rows.Close()

	out := []models.BookReview{}
	for rows.Next() {
		var rv models.BookReview
		if err := rows.Scan(
			&rv.ID, &rv.Rating, &rv.Content, &rv.CreatedAt, &rv.User.ID, &rv.User.DisplayName,
			&rv.Score, &rv.VotesCount,
		); err != nil {
			return nil, fmt.Errorf("scan book review: %w", err)
		}
		if rv.User.DisplayName == "" {
			rv.User.DisplayName = guestName
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("book reviews rows: %w", err)
	}
	return out, nil
}
