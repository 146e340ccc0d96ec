package models

import "time"

// Book is the local cache row for a catalog volume. ID is the catalog id.
type Book struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Authors      string    `json:"authors"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BookSummary is the slice of a book embedded in reviews and favorites.
type BookSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Authors      string `json:"authors"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (b Book) Summary() BookSummary {
	return BookSummary{ID: b.ID, Title: b.Title, Authors: b.Authors, ThumbnailURL: b.ThumbnailURL}
}
