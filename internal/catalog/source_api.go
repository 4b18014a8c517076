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

// APISource pulls the live catalog of a peer bookhub instance through
// its /api/books endpoint.
type APISource struct {
	BaseURL string
	Client  *http.Client
}

func NewAPISource(baseURL string) *APISource {
	return &APISource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (s *APISource) Name() string { return "peer:" + s.BaseURL }

func (s *APISource) FetchAll(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/api/books", nil)
	if err != nil {
		return nil, fmt.Errorf("peer: build request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("peer: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("peer: status %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Success bool          `json:"success"`
		Count   int           `json:"count"`
		Books   []models.Book `json:"books"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("peer: decode: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("peer: api reported failure")
	}

	out := make([]Entry, 0, len(envelope.Books))
	for _, b := range envelope.Books {
		out = append(out, entryFromBook(b))
	}
	return out, nil
}
