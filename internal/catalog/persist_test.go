package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestSaveInsertsBooksAndAuthors(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries := []Entry{
		{Title: "1984", Year: intPtr(1949), ISBN: strPtr("978-0451524935"), Authors: []string{"George Orwell"}},
		{Title: "Good Omens", Year: intPtr(1990), Authors: []string{"Agatha Christie", "Stephen King"}},
	}
	require.NoError(t, Save(ctx, db, entries))

	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM books`))
	assert.Equal(t, 3, count(t, db, `SELECT COUNT(*) FROM authors`))
	assert.Equal(t, 3, count(t, db, `SELECT COUNT(*) FROM book_authors`))
}

func TestSaveIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries := []Entry{
		{Title: "1984", ISBN: strPtr("978-0451524935"), Authors: []string{"George Orwell"}},
	}
	require.NoError(t, Save(ctx, db, entries))
	require.NoError(t, Save(ctx, db, entries))

	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM books`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM authors`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM book_authors`))
}

func TestSaveFillsMissingFieldsOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO books (title, year) VALUES ('Animal Farm', 1945)`)
	require.NoError(t, err)

	// matched by title: year must not be overwritten, isbn fills in
	require.NoError(t, Save(ctx, db, []Entry{
		{Title: "animal farm", Year: intPtr(2000), ISBN: strPtr("978-0451526342"), Authors: []string{"George Orwell"}},
	}))

	var year int
	var isbn string
	require.NoError(t, db.QueryRow(`SELECT year, isbn FROM books WHERE title = 'Animal Farm'`).Scan(&year, &isbn))
	assert.Equal(t, 1945, year)
	assert.Equal(t, "978-0451526342", isbn)

	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM books`))
}

func TestSaveReusesAuthorsByName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO authors (name, birth_year) VALUES ('George Orwell', 1903)`)
	require.NoError(t, err)

	require.NoError(t, Save(ctx, db, []Entry{
		{Title: "1984", Authors: []string{"George Orwell"}},
		{Title: "Animal Farm", Authors: []string{"George Orwell"}},
	}))

	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM authors`))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM book_authors`))

	// the existing author row is untouched
	var birthYear int
	require.NoError(t, db.QueryRow(`SELECT birth_year FROM authors WHERE name = 'George Orwell'`).Scan(&birthYear))
	assert.Equal(t, 1903, birthYear)
}

func TestSaveRebuildsLinks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Save(ctx, db, []Entry{
		{Title: "Good Omens", ISBN: strPtr("978-0060853983"), Authors: []string{"Wrong Author"}},
	}))
	require.NoError(t, Save(ctx, db, []Entry{
		{Title: "Good Omens", ISBN: strPtr("978-0060853983"), Authors: []string{"Agatha Christie", "Stephen King"}},
	}))

	assert.Equal(t, 2, count(t, db, `
		SELECT COUNT(*) FROM book_authors ba
		JOIN books b ON b.id = ba.book_id
		WHERE b.title = 'Good Omens'
	`))
}
