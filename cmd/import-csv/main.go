package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"bookhub/pkg/database"
)

func main() {
	var (
		authorsIn = flag.String("authors", "data/authors.csv", "input CSV path for authors")
		booksIn   = flag.String("books", "data/books.csv", "input CSV path for books")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	// authors first, so book rows can resolve them by name
	if err := importAuthors(ctx, db, *authorsIn); err != nil {
		log.Fatalf("import authors failed: %v", err)
	}
	if err := importBooks(ctx, db, *booksIn); err != nil {
		log.Fatalf("import books failed: %v", err)
	}

	log.Printf("imported authors from %s and books from %s", *authorsIn, *booksIn)
}

func importAuthors(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO authors (name, birth_year, country)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM authors WHERE name = ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		name := valueAt(header, row, "name")
		if name == "" {
			continue
		}

		birthYear, err := parseNullInt(valueAt(header, row, "birth_year"))
		if err != nil {
			return fmt.Errorf("parse birth_year for %s: %w", name, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			name,
			birthYear,
			nullString(valueAt(header, row, "country")),
			name,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func importBooks(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		title := valueAt(header, row, "title")
		if title == "" {
			continue
		}

		year, err := parseNullInt(valueAt(header, row, "year"))
		if err != nil {
			return fmt.Errorf("parse year for %s: %w", title, err)
		}
		isbn := nullString(valueAt(header, row, "isbn"))

		bookID, err := upsertBook(ctx, tx, valueAt(header, row, "id"), title, year, isbn)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", title, err)
		}

		if err := linkAuthors(ctx, tx, bookID, valueAt(header, row, "authors")); err != nil {
			return fmt.Errorf("link authors for %s: %w", title, err)
		}
	}

	return tx.Commit()
}

// upsertBook updates in place when the row carries a known id,
// otherwise inserts a fresh book.
func upsertBook(ctx context.Context, tx *sql.Tx, rawID, title string, year sql.NullInt64, isbn sql.NullString) (int64, error) {
	if rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse id %q: %w", rawID, err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE books SET title = ?, year = ?, isbn = ? WHERE id = ?
		`, title, year, isbn, id)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return id, nil
		}
		// unknown id falls through to a plain insert
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO books (title, year, isbn) VALUES (?, ?, ?)
	`, title, year, isbn)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// linkAuthors replaces the book's links with the semicolon-separated
// names, creating authors that do not exist yet.
func linkAuthors(ctx context.Context, tx *sql.Tx, bookID int64, names string) error {
	if strings.TrimSpace(names) == "" {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM book_authors WHERE book_id = ?
	`, bookID); err != nil {
		return err
	}

	for _, name := range strings.Split(names, ";") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var authorID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM authors WHERE name = ?
		`, name).Scan(&authorID)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO authors (name) VALUES (?)
			`, name)
			if err != nil {
				return err
			}
			authorID, err = res.LastInsertId()
			if err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO book_authors (book_id, author_id) VALUES (?, ?)
		`, bookID, authorID); err != nil {
			return err
		}
	}
	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNullInt(raw string) (sql.NullInt64, error) {
	if raw == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
