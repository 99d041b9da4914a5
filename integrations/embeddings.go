package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EmbeddingClient computes text embeddings against an Ollama-compatible
// /api/embeddings endpoint. Calls are side-effect free and the same text
// yields the same vector, so callers may cache results freely.
type EmbeddingClient struct {
	Client  *http.Client
	BaseURL string
	Model   string
}

func NewEmbeddingClient(baseURL, model string) *EmbeddingClient {
	return &EmbeddingClient{
		Client:  &http.Client{},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Model:   model,
	}
}

func (ec *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	payload, err := json.Marshal(map[string]string{
		"model":  ec.Model,
		"prompt": text,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.BaseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ec.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send embeddings request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %v", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings API returned an empty vector")
	}

	return result.Embedding, nil
}
