package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bookhub/pkg/database"
)

func main() {
	var (
		booksOut   = flag.String("books", "data/books.csv", "output CSV path for books")
		authorsOut = flag.String("authors", "data/authors.csv", "output CSV path for authors")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportBooks(ctx, db, *booksOut); err != nil {
		log.Fatalf("export books failed: %v", err)
	}
	if err := exportAuthors(ctx, db, *authorsOut); err != nil {
		log.Fatalf("export authors failed: %v", err)
	}

	log.Printf("exported books to %s and authors to %s", *booksOut, *authorsOut)
}

func exportBooks(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "title", "year", "isbn", "created_at", "authors"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, year, isbn, created_at
		FROM books
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type bookRow struct {
		id      int64
		title   string
		year    sql.NullInt64
		isbn    sql.NullString
		created time.Time
	}
	var books []bookRow

	for rows.Next() {
		var b bookRow
		if err := rows.Scan(&b.id, &b.title, &b.year, &b.isbn, &b.created); err != nil {
			return err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, b := range books {
		names, err := authorNames(ctx, db, b.id)
		if err != nil {
			return err
		}

		year := ""
		if b.year.Valid {
			year = strconv.FormatInt(b.year.Int64, 10)
		}

		if err := w.Write([]string{
			strconv.FormatInt(b.id, 10),
			b.title,
			year,
			b.isbn.String,
			b.created.Format(time.RFC3339),
			strings.Join(names, ";"),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func authorNames(ctx context.Context, db *sql.DB, bookID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.name
		FROM authors a
		JOIN book_authors ba ON ba.author_id = a.id
		WHERE ba.book_id = ?
		ORDER BY a.id
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func exportAuthors(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "name", "birth_year", "country", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, birth_year, country, created_at
		FROM authors
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        int64
			name      string
			birthYear sql.NullInt64
			country   sql.NullString
			created   time.Time
		)
		if err := rows.Scan(&id, &name, &birthYear, &country, &created); err != nil {
			return err
		}

		year := ""
		if birthYear.Valid {
			year = strconv.FormatInt(birthYear.Int64, 10)
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			name,
			year,
			country.String,
			created.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
