package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bookhub/pkg/models"
)

// MirrorSource pulls a static catalog dump served by cmd/catalog-server
// (or any file server): a bare JSON array of book objects, the shape
// the CLI's `export json` writes.
type MirrorSource struct {
	BaseURL string
	Client  *http.Client
}

func NewMirrorSource(baseURL string) *MirrorSource {
	return &MirrorSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *MirrorSource) Name() string { return "mirror:" + s.BaseURL }

func (s *MirrorSource) FetchAll(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/catalog", nil)
	if err != nil {
		return nil, fmt.Errorf("mirror: build request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mirror: status %d: %s", resp.StatusCode, string(body))
	}

	var books []models.Book
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		return nil, fmt.Errorf("mirror: decode: %w", err)
	}

	out := make([]Entry, 0, len(books))
	for _, b := range books {
		out = append(out, entryFromBook(b))
	}
	return out, nil
}
