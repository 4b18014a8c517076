package models

import "time"

type Author struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	BirthYear *int          `json:"birth_year"`
	Country   *string       `json:"country"`
	CreatedAt time.Time     `json:"created_at"`
	Books     []BookSummary `json:"books"`
}

// AuthorSummary is the compact form embedded in Book payloads.
type AuthorSummary struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Country *string `json:"country"`
}
