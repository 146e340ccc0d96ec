package models

import "time"

type Favorite struct {
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	CreatedAt time.Time `json:"createdAt"`
	Book      Book      `json:"book"`
}
