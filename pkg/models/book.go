package models

import "time"

type Book struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Year      *int            `json:"year"`
	ISBN      *string         `json:"isbn"`
	CreatedAt time.Time       `json:"created_at"`
	Authors   []AuthorSummary `json:"authors"`
}

// BookSummary is the compact form embedded in Author payloads.
type BookSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Year  *int   `json:"year"`
}
