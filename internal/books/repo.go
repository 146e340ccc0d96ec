package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookhub/pkg/models"
)

// Input is the display data for a catalog volume. Empty optional fields
// leave the stored values alone on refresh.
type Input struct {
	ID           string
	Title        string
	Authors      string
	Description  string
	ThumbnailURL string
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const selectBook = `
	SELECT id, title, authors, description, thumbnail_url, created_at, updated_at
	FROM books
`

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(s scanner) (*models.Book, error) {
	var b models.Book
	if err := s.Scan(&b.ID, &b.Title, &b.Authors, &b.Description, &b.ThumbnailURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Book, error) {
	b, err := scanBook(r.DB.QueryRowContext(ctx, selectBook+`WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// ListRecent returns the most recently cached books.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]models.Book, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, selectBook+`ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0, limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("list books scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books rows: %w", err)
	}
	return out, nil
}

// Upsert creates the book or refreshes its display fields.
func (r *Repo) Upsert(ctx context.Context, in Input) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO books (id, title, authors, description, thumbnail_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  authors = COALESCE(NULLIF(excluded.authors, ''), books.authors),
		  description = COALESCE(NULLIF(excluded.description, ''), books.description),
		  thumbnail_url = COALESCE(NULLIF(excluded.thumbnail_url, ''), books.thumbnail_url),
		  updated_at = CURRENT_TIMESTAMP
	`, in.ID, in.Title, in.Authors, in.Description, in.ThumbnailURL)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", in.ID, err)
	}
	return nil
}

// InsertIfAbsent creates the book unless it exists. It reports whether a
// row was created.
func (r *Repo) InsertIfAbsent(ctx context.Context, in Input) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO books (id, title, authors, description, thumbnail_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, in.ID, in.Title, in.Authors, in.Description, in.ThumbnailURL)
	if err != nil {
		return false, fmt.Errorf("insert book %s: %w", in.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert book rows: %w", err)
	}
	return n == 1, nil
}
