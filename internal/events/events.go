// Package events fans bookhub mutations out to activity feed subscribers
// over raw TCP and websockets as newline-delimited JSON.
package events

import "time"

const (
	ReviewCreated   = "review.created"
	ReviewUpdated   = "review.updated"
	ReviewDeleted   = "review.deleted"
	VoteCast        = "vote.cast"
	FavoriteAdded   = "favorite.added"
	FavoriteRemoved = "favorite.removed"
)

// Event is one feed message. UserID is set only on review events, where the
// author is already public on the book page; voters and favoriters stay
// anonymous.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	BookID     string    `json:"book_id,omitempty"`
	ReviewID   string    `json:"review_id,omitempty"`
	Rating     int       `json:"rating,omitempty"`
	Score      *int      `json:"score,omitempty"`
	VotesCount *int      `json:"votes_count,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}
