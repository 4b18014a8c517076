package authors

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
	Name      string
	BirthYear *int
	Country   *string
}

// UpdateInput mirrors books.UpdateInput: SetX records key presence,
// the pointer carries null as nil. Book links are managed only from
// the book side, so there is no author-side id list here.
type UpdateInput struct {
	SetName bool
	Name    *string

	SetBirthYear bool
	BirthYear    *int

	SetCountry bool
	Country    *string
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Author, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, birth_year, country, created_at
		FROM authors
		WHERE id = ?
	`, id)

	a, err := scanAuthor(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan author: %w", err)
	}

	books, err := r.booksFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Books = books
	return a, nil
}

func (r *Repo) List(ctx context.Context) ([]models.Author, error) {
	return r.queryAuthors(ctx, `
		SELECT id, name, birth_year, country, created_at
		FROM authors
		ORDER BY id
	`)
}

// FindByName returns every author whose name contains q, case-insensitively.
func (r *Repo) FindByName(ctx context.Context, q string) ([]models.Author, error) {
	return r.queryAuthors(ctx, `
		SELECT id, name, birth_year, country, created_at
		FROM authors
		WHERE LOWER(name) LIKE ?
		ORDER BY id
	`, "%"+strings.ToLower(q)+"%")
}

func (r *Repo) Create(ctx context.Context, in CreateInput) (*models.Author, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO authors (name, birth_year, country) VALUES (?, ?, ?)
	`, in.Name, in.BirthYear, in.Country)
	if err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repo) Update(ctx context.Context, id int64, in UpdateInput) (*models.Author, error) {
	var sets []string
	var args []any
	if in.SetName {
		sets = append(sets, "name = ?")
		args = append(args, in.Name)
	}
	if in.SetBirthYear {
		sets = append(sets, "birth_year = ?")
		args = append(args, in.BirthYear)
	}
	if in.SetCountry {
		sets = append(sets, "country = ?")
		args = append(args, in.Country)
	}

	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			`UPDATE authors SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
			args...,
		); err != nil {
			return nil, fmt.Errorf("update author: %w", err)
		}
	}

	return r.GetByID(ctx, id)
}

// Delete removes the author; join rows go via ON DELETE CASCADE, the
// linked books survive.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM authors WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete author: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) queryAuthors(ctx context.Context, query string, args ...any) ([]models.Author, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	out := make([]models.Author, 0)
	for rows.Next() {
		a, err := scanAuthor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan author row: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	for i := range out {
		books, err := r.booksFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Books = books
	}
	return out, nil
}

func (r *Repo) booksFor(ctx context.Context, authorID int64) ([]models.BookSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT b.id, b.title, b.year
		FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = ?
		ORDER BY b.id
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("query author books: %w", err)
	}
	defer rows.Close()

	out := make([]models.BookSummary, 0)
	for rows.Next() {
		var s models.BookSummary
		var year sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Title, &year); err != nil {
			return nil, fmt.Errorf("scan book summary: %w", err)
		}
		if year.Valid {
			y := int(year.Int64)
			s.Year = &y
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func scanAuthor(scan func(dest ...any) error) (*models.Author, error) {
	var (
		a         models.Author
		birthYear sql.NullInt64
		country   sql.NullString
		created   time.Time
	)
	if err := scan(&a.ID, &a.Name, &birthYear, &country, &created); err != nil {
		return nil, err
	}
	if birthYear.Valid {
		y := int(birthYear.Int64)
		a.BirthYear = &y
	}
	if country.Valid {
		a.Country = &country.String
	}
	a.CreatedAt = created
	return &a, nil
}
