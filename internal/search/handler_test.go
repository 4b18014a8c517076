package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/authors"
	"bookhub/internal/books"
	"bookhub/pkg/database"
)

func newTestRouter(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	router := gin.New()
	NewHandler(books.NewRepo(db), authors.NewRepo(db)).RegisterRoutes(router.Group("/api"))
	return router, db
}

func search(t *testing.T, router *gin.Engine, q string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q="+url.QueryEscape(q), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func titlesOf(body map[string]any) map[string]bool {
	out := make(map[string]bool)
	for _, b := range body["books"].([]any) {
		out[b.(map[string]any)["title"].(string)] = true
	}
	return out
}

func namesOf(body map[string]any) map[string]bool {
	out := make(map[string]bool)
	for _, a := range body["authors"].([]any) {
		out[a.(map[string]any)["name"].(string)] = true
	}
	return out
}

func TestEmptyQueryRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	w := search(t, router, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Search query is required", decode(t, w)["error"])

	w = search(t, router, "   ")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthorMatchExpandsToBooks(t *testing.T) {
	router, db := newTestRouter(t)
	seeded, err := database.SeedIfEmpty(context.Background(), db)
	require.NoError(t, err)
	require.True(t, seeded)

	// neither "1984" nor "Animal Farm" contains "orwell"; both surface
	// through the author expansion
	w := search(t, router, "orwell")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "orwell", body["query"])
	assert.Equal(t, float64(1), body["author_count"])
	assert.Equal(t, float64(2), body["book_count"])
	assert.Equal(t, map[string]bool{"1984": true, "Animal Farm": true}, titlesOf(body))
	assert.Equal(t, map[string]bool{"George Orwell": true}, namesOf(body))
}

func TestTitleMatchExpandsToAuthors(t *testing.T) {
	router, db := newTestRouter(t)
	_, err := database.SeedIfEmpty(context.Background(), db)
	require.NoError(t, err)

	// Good Omens carries two credited authors
	w := search(t, router, "good omens")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	assert.Equal(t, float64(1), body["book_count"])
	assert.Equal(t, float64(2), body["author_count"])
	assert.Equal(t, map[string]bool{"Agatha Christie": true, "Stephen King": true}, namesOf(body))
}

func TestCaseInsensitiveAndDeduplicated(t *testing.T) {
	router, db := newTestRouter(t)
	_, err := database.SeedIfEmpty(context.Background(), db)
	require.NoError(t, err)

	// "KING" matches Stephen King; his two books (The Shining, Good
	// Omens) come in via expansion exactly once each
	w := search(t, router, "KING")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	assert.Equal(t, float64(1), body["author_count"])
	assert.Equal(t, float64(2), body["book_count"])
	assert.Equal(t, map[string]bool{"The Shining": true, "Good Omens": true}, titlesOf(body))
}

func TestNoMatches(t *testing.T) {
	router, db := newTestRouter(t)
	_, err := database.SeedIfEmpty(context.Background(), db)
	require.NoError(t, err)

	w := search(t, router, "zzzz-nothing")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["book_count"])
	assert.Equal(t, float64(0), body["author_count"])
	assert.Equal(t, []any{}, body["books"], "empty results stay arrays")
	assert.Equal(t, []any{}, body["authors"])
}
