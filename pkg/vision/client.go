// Package vision is the client for the computer-vision sidecar. The
// sidecar owns the models; this side only ships an image URL across,
// applies the latency budget, and hands back labels or crops. Every
// call is one-shot: over-budget or failed means no result, never a
// retry.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/config"
)

// Identification is one ranked guess for a cat in an image.
type Identification struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Detection is one located cat with its bounding box in pixels.
type Detection struct {
	Box   [4]int  `json:"box"` // x, y, width, height
	Score float64 `json:"score"`
}

// Client talks HTTP to the sidecar. Nil-safe construction: FromConfig
// returns nil when the vision service is disabled, and callers treat a
// nil client as "feature off".
type Client struct {
	baseURL string
	budget  time.Duration
	client  *http.Client
}

func NewClient(baseURL string, budget time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		budget:  budget,
		client:  &http.Client{Timeout: budget},
	}
}

func FromConfig(cfg config.VisionConfig) *Client {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	budget := time.Duration(cfg.BudgetMS) * time.Millisecond
	if budget <= 0 {
		budget = 8 * time.Second
	}
	return NewClient(cfg.BaseURL, budget)
}

type imageRequest struct {
	ImageURL string `json:"image_url"`
	TopK     int    `json:"top_k,omitempty"`
}

// Identify returns ranked name guesses for the cat in the image,
// best first.
func (c *Client) Identify(ctx context.Context, imageURL string) ([]Identification, error) {
	var out struct {
		Results []Identification `json:"results"`
	}
	if err := c.post(ctx, "/v1/identify", imageRequest{ImageURL: imageURL, TopK: 3}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Detect returns bounding boxes for every cat found in the image.
func (c *Client) Detect(ctx context.Context, imageURL string) ([]Detection, error) {
	var out struct {
		Detections []Detection `json:"detections"`
	}
	if err := c.post(ctx, "/v1/detect", imageRequest{ImageURL: imageURL}, &out); err != nil {
		return nil, err
	}
	return out.Detections, nil
}

// Crop returns the image cropped to its most prominent cat, as raw
// encoded bytes plus the content type the sidecar produced.
func (c *Client) Crop(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	body, err := json.Marshal(imageRequest{ImageURL: imageURL})
	if err != nil {
		return nil, "", fmt.Errorf("marshal crop request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/crop", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("build crop request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("crop request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("vision service returned %d: %s", resp.StatusCode, string(data))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read crop response: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal vision request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vision service returned %d: %s", resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode vision response: %w", err)
	}
	return nil
}
