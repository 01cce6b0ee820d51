package imageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"picstoria/api/internal/config"
)

// ImageAnalysis is MirAI's take on a single image.
type ImageAnalysis struct {
	ColorPalette  []string `json:"colorPalette"`
	SuggestedTags []string `json:"suggestedTags"`
}

// Recommendation is one visually similar image.
type Recommendation struct {
	ImageURL string  `json:"imageUrl"`
	Score    float64 `json:"score"`
}

// ImageAnalyzer is the MirAI recommendation service surface the photo
// service depends on.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error)
	RecommendImages(ctx context.Context, imageURL string, pool []string, topK int) ([]Recommendation, error)
}

type MirAIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewMirAIClient(cfg config.MirAIConfig) *MirAIClient {
	return &MirAIClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *MirAIClient) AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error) {
	var analysis ImageAnalysis
	err := c.post(ctx, "/picstoria/analyze-image", map[string]any{
		"image_url": imageURL,
	}, &analysis)
	return analysis, err
}

func (c *MirAIClient) RecommendImages(ctx context.Context, imageURL string, pool []string, topK int) ([]Recommendation, error) {
	var body struct {
		Images []Recommendation `json:"images"`
	}
	err := c.post(ctx, "/picstoria/recommend-images", map[string]any{
		"image_url":       imageURL,
		"image_pool_urls": pool,
		"top_k":           topK,
		"score_threshold": 0.3,
	}, &body)
	return body.Images, err
}

func (c *MirAIClient) post(ctx context.Context, path string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mirai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("mirai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mirai %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mirai %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode mirai response: %w", err)
	}
	return nil
}
