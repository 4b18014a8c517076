package feed

import "time"

// ChangeEvent is broadcast to every connected observer after a
// successful catalog mutation.
type ChangeEvent struct {
	Type  string    `json:"type"` // "book.created|updated|deleted", "author.created|updated|deleted"
	ID    int64     `json:"id"`
	Title string    `json:"title,omitempty"` // books
	Name  string    `json:"name,omitempty"`  // authors
	At    time.Time `json:"at"`
}
