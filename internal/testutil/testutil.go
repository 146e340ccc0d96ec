// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"bookhub/pkg/database"
)

// SetupTestDB opens a fresh file-backed database with the full schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path: filepath.Join(t.TempDir(), "bookhub.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateUser inserts a passwordless user and returns its id.
func CreateUser(t *testing.T, db *sql.DB, name string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`,
		id, name, id+"@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func CreateBook(t *testing.T, db *sql.DB, id, title string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO books (id, title, authors) VALUES (?, ?, 'Test Author')`, id, title)
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
}

func CreateReview(t *testing.T, db *sql.DB, id, bookID, userID string, rating int) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO reviews (id, book_id, user_id, rating, content) VALUES (?, ?, ?, ?, 'Decent read.')`,
		id, bookID, userID, rating)
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
}

func CreateVote(t *testing.T, db *sql.DB, reviewID, userID string, value int) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO votes (review_id, user_id, value) VALUES (?, ?, ?)`, reviewID, userID, value)
	if err != nil {
		t.Fatalf("create vote: %v", err)
	}
}

// Count runs a COUNT(*) query.
func Count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
