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

// LocalClient scores documents against a self-hosted cross-encoder service
// (text-embeddings-inference style): POST /rerank with the query and raw
// texts. The service scores every document; truncation is left to the caller.
type LocalClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLocalClient(baseURL string) *LocalClient {
	return &LocalClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *LocalClient) Rerank(ctx context.Context, query string, documents []string, _ int) ([]ports.RerankResult, error) {
	reqBody := map[string]any{
		"query": query,
		"texts": documents,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("local rerank status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var response []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := make([]ports.RerankResult, 0, len(response))
	for _, r := range response {
		out = append(out, ports.RerankResult{Index: r.Index, Relevance: r.Score})
	}
	return out, nil
}
