package imageapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"picstoria/api/internal/config"
)

// ImageResult is one stock photo hit from the external image API.
type ImageResult struct {
	ID             string `json:"id"`
	ImageURL       string `json:"imageUrl"`
	Description    string `json:"description"`
	AltDescription string `json:"altDescription"`
}

// ImageSearcher searches an external stock photo catalog.
type ImageSearcher interface {
	Search(ctx context.Context, query string, perPage int) ([]ImageResult, error)
}

// UnsplashClient is a thin client over the Unsplash search API.
type UnsplashClient struct {
	baseURL   string
	accessKey string
	http      *http.Client
}

func NewUnsplashClient(cfg config.UnsplashConfig) *UnsplashClient {
	return &UnsplashClient{
		baseURL:   cfg.BaseURL,
		accessKey: cfg.AccessKey,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *UnsplashClient) Search(ctx context.Context, query string, perPage int) ([]ImageResult, error) {
	if perPage <= 0 {
		perPage = 10
	}

	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=%d",
		c.baseURL, url.QueryEscape(query), perPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unsplash search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unsplash status %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			ID             string `json:"id"`
			Description    string `json:"description"`
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
			} `json:"urls"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode unsplash response: %w", err)
	}

	results := make([]ImageResult, 0, len(body.Results))
	for _, hit := range body.Results {
		results = append(results, ImageResult{
			ID:             hit.ID,
			ImageURL:       hit.URLs.Regular,
			Description:    hit.Description,
			AltDescription: hit.AltDescription,
		})
	}
	return results, nil
}
