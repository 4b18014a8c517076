package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bookhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type CreateInput struct {
	Title     string
	Year      *int
	ISBN      *string
	AuthorIDs []int64
}

// UpdateInput distinguishes "field absent" from "field set to null":
// each SetX flag records key presence in the payload, the value pointer
// carries null as nil.
type UpdateInput struct {
	SetTitle bool
	Title    *string

	SetYear bool
	Year    *int

	SetISBN bool
	ISBN    *string

	SetAuthorIDs bool
	AuthorIDs    []int64
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, title, year, isbn, created_at
		FROM books
		WHERE id = ?
	`, id)

	b, err := scanBook(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}

	authors, err := r.authorsFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Authors = authors
	return b, nil
}

func (r *Repo) List(ctx context.Context) ([]models.Book, error) {
	return r.queryBooks(ctx, `
		SELECT id, title, year, isbn, created_at
		FROM books
		ORDER BY id
	`)
}

// FindByTitle returns every book whose title contains q, case-insensitively.
func (r *Repo) FindByTitle(ctx context.Context, q string) ([]models.Book, error) {
	return r.queryBooks(ctx, `
		SELECT id, title, year, isbn, created_at
		FROM books
		WHERE LOWER(title) LIKE ?
		ORDER BY id
	`, "%"+strings.ToLower(q)+"%")
}

func (r *Repo) ISBNExists(ctx context.Context, isbn string) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM books WHERE isbn = ?
	`, isbn).Scan(&n); err != nil {
		return false, fmt.Errorf("check isbn: %w", err)
	}
	return n > 0, nil
}

// Create inserts the book and its author links in one transaction.
// Unknown author ids are skipped, not errors.
func (r *Repo) Create(ctx context.Context, in CreateInput) (*models.Book, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO books (title, year, isbn) VALUES (?, ?, ?)
	`, in.Title, in.Year, in.ISBN)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := linkAuthors(ctx, tx, id, in.AuthorIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Update applies only the fields flagged as set. A set author-id list
// fully replaces the existing links.
func (r *Repo) Update(ctx context.Context, id int64, in UpdateInput) (*models.Book, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var sets []string
	var args []any
	if in.SetTitle {
		sets = append(sets, "title = ?")
		args = append(args, in.Title)
	}
	if in.SetYear {
		sets = append(sets, "year = ?")
		args = append(args, in.Year)
	}
	if in.SetISBN {
		sets = append(sets, "isbn = ?")
		args = append(args, in.ISBN)
	}

	if len(sets) > 0 {
		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
			args...,
		); err != nil {
			return nil, fmt.Errorf("update book: %w", err)
		}
	}

	if in.SetAuthorIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM book_authors WHERE book_id = ?
		`, id); err != nil {
			return nil, fmt.Errorf("clear book links: %w", err)
		}
		if err := linkAuthors(ctx, tx, id, in.AuthorIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes the book; its join rows go via ON DELETE CASCADE.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM books WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// linkAuthors inserts one join row per id. The INSERT..SELECT resolves
// each id against authors, so unknown ids insert nothing; OR IGNORE
// swallows duplicates in the input list.
func linkAuthors(ctx context.Context, tx *sql.Tx, bookID int64, authorIDs []int64) error {
	for _, aid := range authorIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO book_authors (book_id, author_id)
			SELECT ?, id FROM authors WHERE id = ?
		`, bookID, aid); err != nil {
			return fmt.Errorf("link author %d: %w", aid, err)
		}
	}
	return nil
}

func (r *Repo) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	for i := range out {
		authors, err := r.authorsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Authors = authors
	}
	return out, nil
}

func (r *Repo) authorsFor(ctx context.Context, bookID int64) ([]models.AuthorSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.id, a.name, a.country
		FROM authors a
		JOIN book_authors ba ON ba.author_id = a.id
		WHERE ba.book_id = ?
		ORDER BY a.id
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query book authors: %w", err)
	}
	defer rows.Close()

	out := make([]models.AuthorSummary, 0)
	for rows.Next() {
		var s models.AuthorSummary
		var country sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &country); err != nil {
			return nil, fmt.Errorf("scan author summary: %w", err)
		}
		if country.Valid {
			s.Country = &country.String
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func scanBook(scan func(dest ...any) error) (*models.Book, error) {
	var (
		b       models.Book
		year    sql.NullInt64
		isbn    sql.NullString
		created time.Time
	)
	if err := scan(&b.ID, &b.Title, &year, &isbn, &created); err != nil {
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		b.Year = &y
	}
	if isbn.Valid {
		b.ISBN = &isbn.String
	}
	b.CreatedAt = created
	return &b, nil
}
