package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Insert adds the pair unless it already exists. It reports whether a row
// was written.
func (r *Repo) Insert(ctx context.Context, userID, bookID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO favorites (user_id, book_id)
		VALUES (?, ?)
		ON CONFLICT(user_id, book_id) DO NOTHING
	`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert favorite rows: %w", err)
	}
	return n > 0, nil
}

// DeleteAll removes every row for the pair and reports how many went.
func (r *Repo) DeleteAll(ctx context.Context, userID, bookID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE user_id = ? AND book_id = ?
	`, userID, bookID)
	if err != nil {
		return 0, fmt.Errorf("delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete favorite rows: %w", err)
	}
	return n, nil
}

const selectFavorite = `
	SELECT f.user_id, f.book_id, f.created_at,
	       b.id, b.title, b.authors, b.description, b.thumbnail_url, b.created_at, b.updated_at
	FROM favorites f
	JOIN books b ON b.id = f.book_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanFavorite(s scanner) (*models.Favorite, error) {
	var f models.Favorite
	err := s.Scan(
		&f.UserID, &f.BookID, &f.CreatedAt,
		&f.Book.ID, &f.Book.Title, &f.Book.Authors, &f.Book.Description, &f.Book.ThumbnailURL,
		&f.Book.CreatedAt, &f.Book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) Get(ctx context.Context, userID, bookID string) (*models.Favorite, error) {
	f, err := scanFavorite(r.DB.QueryRowContext(ctx, selectFavorite+`
		WHERE f.user_id = ? AND f.book_id = ?
	`, userID, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get favorite: %w", err)
	}
	return f, nil
}

// List returns the user's favorites in the order they were added.
func (r *Repo) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	rows, err := r.DB.QueryContext(ctx, selectFavorite+`
		WHERE f.user_id = ?
		ORDER BY f.rowid
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := []models.Favorite{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorites rows: %w", err)
	}
	return out, nil
}

func (r *Repo) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM favorites WHERE user_id = ? AND book_id = ?
	`, userID, bookID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return true, nil
}

func (r *Repo) BookExists(ctx context.Context, bookID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, bookID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check book: %w", err)
	}
	return true, nil
}
