package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Save merges the entries into the local store in one transaction:
// books are matched by ISBN, then by case-insensitive title; matched
// rows keep their title and only fill a missing year/isbn, new rows
// are inserted. Authors are resolved or created by exact name and the
// links of every touched book are rebuilt from the entry.
func Save(ctx context.Context, db *sql.DB, entries []Entry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}

		bookID, err := upsertBook(ctx, tx, e)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM book_authors WHERE book_id = ?
		`, bookID); err != nil {
			return fmt.Errorf("clear links for %s: %w", e.Title, err)
		}

		for _, name := range e.Authors {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			authorID, err := resolveAuthor(ctx, tx, name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO book_authors (book_id, author_id) VALUES (?, ?)
			`, bookID, authorID); err != nil {
				return fmt.Errorf("link %s to %s: %w", e.Title, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func upsertBook(ctx context.Context, tx *sql.Tx, e Entry) (int64, error) {
	var id int64
	var err error

	if e.ISBN != nil && strings.TrimSpace(*e.ISBN) != "" {
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM books WHERE isbn = ?
		`, strings.TrimSpace(*e.ISBN)).Scan(&id)
	} else {
		err = sql.ErrNoRows
	}
	if err == sql.ErrNoRows {
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM books WHERE LOWER(title) = LOWER(?)
		`, e.Title).Scan(&id)
	}

	switch {
	case err == nil:
		// existing row keeps its title; fill only what is missing
		if _, err := tx.ExecContext(ctx, `
			UPDATE books
			SET year = COALESCE(year, ?), isbn = COALESCE(isbn, ?)
			WHERE id = ?
		`, e.Year, e.ISBN, id); err != nil {
			return 0, fmt.Errorf("update book %s: %w", e.Title, err)
		}
		return id, nil

	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO books (title, year, isbn) VALUES (?, ?, ?)
		`, e.Title, e.Year, e.ISBN)
		if err != nil {
			return 0, fmt.Errorf("insert book %s: %w", e.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("book insert id: %w", err)
		}
		return id, nil

	default:
		return 0, fmt.Errorf("lookup book %s: %w", e.Title, err)
	}
}

func resolveAuthor(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM authors WHERE name = ?
	`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup author %s: %w", name, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO authors (name) VALUES (?)
	`, name)
	if err != nil {
		return 0, fmt.Errorf("insert author %s: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("author insert id: %w", err)
	}
	return id, nil
}
