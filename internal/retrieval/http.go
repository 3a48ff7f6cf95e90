package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPSearcher queries the curriculum content service. The service indexes
// published lessons only, so no visibility filtering happens here.
type HTTPSearcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSearcher creates a searcher against the content service base URL.
func NewHTTPSearcher(baseURL string, timeout time.Duration) *HTTPSearcher {
	return &HTTPSearcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Items []Item `json:"items"`
}

// Search satisfies Searcher. Terms combine as an OR query on the service
// side.
func (s *HTTPSearcher) Search(ctx context.Context, terms []string, limit int) ([]Item, error) {
	q := url.Values{}
	q.Set("q", strings.Join(terms, " "))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/lessons/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("curriculum search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("curriculum search returned status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out.Items, nil
}
