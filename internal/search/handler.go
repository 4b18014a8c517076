package search

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookhub/internal/authors"
	"bookhub/internal/books"
	"bookhub/pkg/models"
)

type Handler struct {
	Books   *books.Repo
	Authors *authors.Repo
}

func NewHandler(bookRepo *books.Repo, authorRepo *authors.Repo) *Handler {
	return &Handler{Books: bookRepo, Authors: authorRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Search query is required"})
		return
	}

	res, err := h.run(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"query":        q,
		"books":        res.Books,
		"authors":      res.Authors,
		"book_count":   len(res.Books),
		"author_count": len(res.Authors),
	})
}

type result struct {
	Books   []models.Book
	Authors []models.Author
}

// run matches q against book titles and author names, then expands
// each side across the association: a matched author contributes all
// of their books, a matched book all of its authors. Expansion reads
// only the direct matches, never the expanded sets, and de-duplicates
// by id. Result order is an implementation detail.
func (h *Handler) run(ctx context.Context, q string) (*result, error) {
	titleMatches, err := h.Books.FindByTitle(ctx, q)
	if err != nil {
		return nil, err
	}
	nameMatches, err := h.Authors.FindByName(ctx, q)
	if err != nil {
		return nil, err
	}

	res := &result{
		Books:   make([]models.Book, 0, len(titleMatches)),
		Authors: make([]models.Author, 0, len(nameMatches)),
	}

	seenBooks := make(map[int64]bool)
	for _, b := range titleMatches {
		if !seenBooks[b.ID] {
			seenBooks[b.ID] = true
			res.Books = append(res.Books, b)
		}
	}
	for _, a := range nameMatches {
		for _, bs := range a.Books {
			if seenBooks[bs.ID] {
				continue
			}
			b, err := h.Books.GetByID(ctx, bs.ID)
			if err != nil {
				return nil, err
			}
			if b != nil {
				seenBooks[b.ID] = true
				res.Books = append(res.Books, *b)
			}
		}
	}

	seenAuthors := make(map[int64]bool)
	for _, a := range nameMatches {
		if !seenAuthors[a.ID] {
			seenAuthors[a.ID] = true
			res.Authors = append(res.Authors, a)
		}
	}
	for _, b := range titleMatches {
		for _, as := range b.Authors {
			if seenAuthors[as.ID] {
				continue
			}
			a, err := h.Authors.GetByID(ctx, as.ID)
			if err != nil {
				return nil, err
			}
			if a != nil {
				seenAuthors[a.ID] = true
				res.Authors = append(res.Authors, *a)
			}
		}
	}

	return res, nil
}
