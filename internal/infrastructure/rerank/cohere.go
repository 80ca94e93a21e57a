// Package rerank provides document rerank backends: the Cohere API for
// managed models and a local scoring endpoint for self-hosted cross-encoders.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ametelin/docqa/internal/core/ports"
)

const defaultCohereBaseURL = "https://api.cohere.ai"

// CohereClient scores documents via POST /v2/rerank. The server truncates to
// top_n, so results may be shorter than the input.
type CohereClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewCohereClient(baseURL, apiKey, model string) *CohereClient {
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	return &CohereClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *CohereClient) Rerank(ctx context.Context, query string, documents []string, topN int) ([]ports.RerankResult, error) {
	reqBody := map[string]any{
		"model":     c.model,
		"query":     query,
		"documents": documents,
	}
	if topN > 0 {
		reqBody["top_n"] = topN
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("cohere rerank status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var response struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := make([]ports.RerankResult, 0, len(response.Results))
	for _, r := range response.Results {
		out = append(out, ports.RerankResult{Index: r.Index, Relevance: r.RelevanceScore})
	}
	return out, nil
}
