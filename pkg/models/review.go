package models

import "time"

type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreatedReview is a new review returned together with its book.
type CreatedReview struct {
	Review
	Book BookSummary `json:"book"`
}

// ReviewAuthor is how a review's author is shown on a book page.
type ReviewAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// UserReview is one of the caller's own reviews, with its book and vote tally.
type UserReview struct {
	ID         string      `json:"id"`
	BookID     string      `json:"bookId"`
	UserID     string      `json:"userId"`
	Rating     int         `json:"rating"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"createdAt"`
	Book       BookSummary `json:"book"`
	Score      int         `json:"score"`
	VotesCount int         `json:"votesCount"`
}

// BookReview is a review as listed under a book.
type BookReview struct {
	ID         string       `json:"id"`
	Rating     int          `json:"rating"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"createdAt"`
	User       ReviewAuthor `json:"user"`
	Score      int          `json:"score"`
	VotesCount int          `json:"votesCount"`
}

// ReviewScore is the vote tally of a single review.
type ReviewScore struct {
	ID         string `json:"id"`
	Score      int    `json:"score"`
	VotesCount int    `json:"votesCount"`
}
