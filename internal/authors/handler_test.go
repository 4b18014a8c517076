package authors

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	NewHandler(NewRepo(db), nil).RegisterRoutes(router.Group("/api"))
	return router, db
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
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

func TestCreateValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/authors", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No data provided", decode(t, w)["error"])

	w = doRequest(t, router, http.MethodPost, "/api/authors", map[string]any{"country": "France"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name is required", decode(t, w)["error"])
}

func TestCreateAndGet(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/authors", map[string]any{
		"name":       "George Orwell",
		"birth_year": 1903,
		"country":    "United Kingdom",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Author created successfully", body["message"])

	author := body["author"].(map[string]any)
	assert.Equal(t, "George Orwell", author["name"])
	assert.Equal(t, float64(1903), author["birth_year"])
	assert.Equal(t, []any{}, author["books"], "books must serialize as an empty array")

	id := int64(author["id"].(float64))
	w = doRequest(t, router, http.MethodGet, "/api/authors/"+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decode(t, w)["author"].(map[string]any)
	assert.Equal(t, "United Kingdom", fetched["country"])
}

func TestGetNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/authors/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Author not found", decode(t, w)["error"])
}

func TestPartialUpdate(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/authors", map[string]any{
		"name": "Agatha Christie", "birth_year": 1890, "country": "United Kingdom",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decode(t, w)["author"].(map[string]any)["id"].(float64))
	path := "/api/authors/" + strconv.FormatInt(id, 10)

	w = doRequest(t, router, http.MethodPut, path, map[string]any{"birth_year": 1891})
	require.Equal(t, http.StatusOK, w.Code)
	author := decode(t, w)["author"].(map[string]any)
	assert.Equal(t, "Agatha Christie", author["name"])
	assert.Equal(t, float64(1891), author["birth_year"])
	assert.Equal(t, "United Kingdom", author["country"])

	// explicit null clears the stored value
	w = doRequest(t, router, http.MethodPut, path, map[string]any{"country": nil})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["author"].(map[string]any)["country"])

	w = doRequest(t, router, http.MethodPut, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No data provided", decode(t, w)["error"])
}

func TestDeleteKeepsBooks(t *testing.T) {
	router, db := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/authors", map[string]any{"name": "Linked"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decode(t, w)["author"].(map[string]any)["id"].(float64))

	res, err := db.Exec(`INSERT INTO books (title) VALUES ('Surviving Book')`)
	require.NoError(t, err)
	bookID, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO book_authors (book_id, author_id) VALUES (?, ?)`, bookID, id)
	require.NoError(t, err)

	w = doRequest(t, router, http.MethodDelete, "/api/authors/"+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Author deleted successfully", decode(t, w)["message"])

	// the link cascades away, the book stays
	var links int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM book_authors WHERE author_id = ?`, id).Scan(&links))
	assert.Equal(t, 0, links)
	var bookCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM books WHERE id = ?`, bookID).Scan(&bookCount))
	assert.Equal(t, 1, bookCount)

	w = doRequest(t, router, http.MethodDelete, "/api/authors/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEnvelope(t *testing.T) {
	router, _ := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/authors", map[string]any{"name": "One"})
	doRequest(t, router, http.MethodPost, "/api/authors", map[string]any{"name": "Two"})

	w := doRequest(t, router, http.MethodGet, "/api/authors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["authors"], 2)
}
