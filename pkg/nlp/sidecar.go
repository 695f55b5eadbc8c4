package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SidecarScorer talks to a local inference sidecar exposing a zero-shot
// classification endpoint. The sidecar owns the model weights and runtime;
// this client only ships text and labels across and applies the budget.
type SidecarScorer struct {
	baseURL string
	budget  time.Duration
	client  *http.Client
}

type sidecarRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

type sidecarResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func NewSidecarScorer(baseURL string, budget time.Duration) *SidecarScorer {
	return &SidecarScorer{
		baseURL: baseURL,
		budget:  budget,
		client:  &http.Client{Timeout: budget},
	}
}

func (s *SidecarScorer) Score(ctx context.Context, text string, labels []string) (Result, error) {
	if len(labels) == 0 {
		return Result{}, fmt.Errorf("no candidate labels")
	}
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	body, err := json.Marshal(sidecarRequest{Text: text, Labels: labels})
	if err != nil {
		return Result{}, fmt.Errorf("marshal score request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/zero-shot", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("scorer returned %d: %s", resp.StatusCode, string(data))
	}

	var out sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode score response: %w", err)
	}
	if out.Score < 0 || out.Score > 1 {
		return Result{}, fmt.Errorf("scorer returned out-of-range score %f", out.Score)
	}
	return Result{Label: out.Label, Score: out.Score}, nil
}
