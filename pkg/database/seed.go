package database

import (
	"context"
	"database/sql"
	"fmt"
)

type seedAuthor struct {
	name      string
	birthYear int
	country   string
}

type seedBook struct {
	title   string
	year    int
	isbn    string
	authors []int // indexes into seedAuthors
}

var seedAuthors = []seedAuthor{
	{"J.K. Rowling", 1965, "United Kingdom"},
	{"George Orwell", 1903, "United Kingdom"},
	{"Ernest Hemingway", 1899, "United States"},
	{"Agatha Christie", 1890, "United Kingdom"},
	{"Stephen King", 1947, "United States"},
}

var seedBooks = []seedBook{
	{"Harry Potter and the Philosopher's Stone", 1997, "978-0747532743", []int{0}},
	{"1984", 1949, "978-0451524935", []int{1}},
	{"Animal Farm", 1945, "978-0451526342", []int{1}},
	{"The Old Man and the Sea", 1952, "978-0684801223", []int{2}},
	{"Murder on the Orient Express", 1934, "978-0062693662", []int{3}},
	{"The Shining", 1977, "978-0307743657", []int{4}},
	{"Good Omens", 1990, "978-0060853983", []int{3, 4}},
}

// SeedIfEmpty loads the sample catalog when both tables are empty.
// Reports whether it seeded.
func SeedIfEmpty(ctx context.Context, db *sql.DB) (bool, error) {
	var books, authors int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&books); err != nil {
		return false, fmt.Errorf("count books: %w", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM authors`).Scan(&authors); err != nil {
		return false, fmt.Errorf("count authors: %w", err)
	}
	if books > 0 || authors > 0 {
		return false, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	authorIDs := make([]int64, 0, len(seedAuthors))
	for _, a := range seedAuthors {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO authors (name, birth_year, country) VALUES (?, ?, ?)
		`, a.name, a.birthYear, a.country)
		if err != nil {
			return false, fmt.Errorf("seed author %s: %w", a.name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("seed author id: %w", err)
		}
		authorIDs = append(authorIDs, id)
	}

	for _, b := range seedBooks {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO books (title, year, isbn) VALUES (?, ?, ?)
		`, b.title, b.year, b.isbn)
		if err != nil {
			return false, fmt.Errorf("seed book %s: %w", b.title, err)
		}
		bookID, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("seed book id: %w", err)
		}
		for _, idx := range b.authors {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO book_authors (book_id, author_id) VALUES (?, ?)
			`, bookID, authorIDs[idx]); err != nil {
				return false, fmt.Errorf("seed link %s: %w", b.title, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return true, nil
}
