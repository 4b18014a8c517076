package books

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/feed"
)

type Handler struct {
	Repo *Repo
	Hub  *feed.Hub
}

func NewHandler(repo *Repo, hub *feed.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/books", h.list)
	rg.GET("/books/:id", h.getByID)
	rg.POST("/books", h.create)
	rg.PUT("/books/:id", h.update)
	rg.DELETE("/books/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(items),
		"books":   items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Book not found"})
		return
	}

	b, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "get failed"})
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Book not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": b})
}

func (h *Handler) create(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No data provided"})
		return
	}

	title, _, err := stringField(raw, "title")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if title == nil || *title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Title is required"})
		return
	}

	year, _, err := intField(raw, "year")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	isbn, _, err := stringField(raw, "isbn")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	authorIDs, _, err := idsField(raw, "author_ids")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}

	ctx := c.Request.Context()

	if isbn != nil && *isbn != "" {
		exists, err := h.Repo.ISBNExists(ctx, *isbn)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "create failed"})
			return
		}
		if exists {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ISBN already exists"})
			return
		}
	}

	b, err := h.Repo.Create(ctx, CreateInput{
		Title:     *title,
		Year:      year,
		ISBN:      isbn,
		AuthorIDs: authorIDs,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "create failed"})
		return
	}

	h.broadcast("book.created", b.ID, b.Title)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Book created successfully",
		"book":    b,
	})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Book not found"})
		return
	}

	ctx := c.Request.Context()

	// existence check comes before the body check
	existing, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "get failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Book not found"})
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No data provided"})
		return
	}

	var in UpdateInput
	if in.Title, in.SetTitle, err = stringField(raw, "title"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if in.Year, in.SetYear, err = intField(raw, "year"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if in.ISBN, in.SetISBN, err = stringField(raw, "isbn"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if in.AuthorIDs, in.SetAuthorIDs, err = idsField(raw, "author_ids"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}

	b, err := h.Repo.Update(ctx, id, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "update failed"})
		return
	}

	h.broadcast("book.updated", b.ID, b.Title)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Book updated successfully",
		"book":    b,
	})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Book not found"})
		return
	}

	ctx := c.Request.Context()

	existing, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Book not found"})
		return
	}

	deleted, err := h.Repo.Delete(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Book not found"})
		return
	}

	h.broadcast("book.deleted", id, existing.Title)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Book deleted successfully",
	})
}

func (h *Handler) broadcast(eventType string, id int64, title string) {
	if h.Hub == nil {
		return
	}
	ev := feed.ChangeEvent{
		Type:  eventType,
		ID:    id,
		Title: title,
		At:    time.Now().UTC(),
	}
	go h.Hub.BroadcastJSON(ev)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// stringField reports the key's value and whether the key was present.
// An explicit null yields (nil, true, nil).
func stringField(raw map[string]json.RawMessage, key string) (*string, bool, error) {
	v, ok := raw[key]
	if !ok {
		return nil, false, nil
	}
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, true, err
	}
	return s, true, nil
}

func intField(raw map[string]json.RawMessage, key string) (*int, bool, error) {
	v, ok := raw[key]
	if !ok {
		return nil, false, nil
	}
	var n *int
	if err := json.Unmarshal(v, &n); err != nil {
		return nil, true, err
	}
	return n, true, nil
}

// idsField treats null the same as an empty list.
func idsField(raw map[string]json.RawMessage, key string) ([]int64, bool, error) {
	v, ok := raw[key]
	if !ok {
		return nil, false, nil
	}
	var ids []int64
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, true, err
	}
	return ids, true, nil
}
