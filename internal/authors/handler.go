package authors

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
	rg.GET("/authors", h.list)
	rg.GET("/authors/:id", h.getByID)
	rg.POST("/authors", h.create)
	rg.PUT("/authors/:id", h.update)
	rg.DELETE("/authors/:id", h.delete)
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
		"authors": items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Author not found"})
		return
	}

	a, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "get failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Author not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "author": a})
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

	name, _, err := stringField(raw, "name")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if name == nil || *name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name is required"})
		return
	}

	birthYear, _, err := intField(raw, "birth_year")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	country, _, err := stringField(raw, "country")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}

	a, err := h.Repo.Create(c.Request.Context(), CreateInput{
		Name:      *name,
		BirthYear: birthYear,
		Country:   country,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "create failed"})
		return
	}

	h.broadcast("author.created", a.ID, a.Name)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Author created successfully",
		"author":  a,
	})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Author not found"})
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
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Author not found"})
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
	if in.Name, in.SetName, err = stringField(raw, "name"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if in.BirthYear, in.SetBirthYear, err = intField(raw, "birth_year"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if in.Country, in.SetCountry, err = stringField(raw, "country"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}

	a, err := h.Repo.Update(ctx, id, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "update failed"})
		return
	}

	h.broadcast("author.updated", a.ID, a.Name)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Author updated successfully",
		"author":  a,
	})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Author not found"})
		return
	}

	ctx := c.Request.Context()

	existing, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Author not found"})
		return
	}

	deleted, err := h.Repo.Delete(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Author not found"})
		return
	}

	h.broadcast("author.deleted", id, existing.Name)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Author deleted successfully",
	})
}

func (h *Handler) broadcast(eventType string, id int64, name string) {
	if h.Hub == nil {
		return
	}
	ev := feed.ChangeEvent{
		Type: eventType,
		ID:   id,
		Name: name,
		At:   time.Now().UTC(),
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
