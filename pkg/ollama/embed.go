// Package ollama provides an Ollama-backed text embedder for the semantic engine.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/goccy/go-json"
)

// EmbedClient implements semantic.Embedder using Ollama's HTTP API.
type EmbedClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewEmbedClient creates an Ollama embedding client.
func NewEmbedClient(baseURL, model string) *EmbedClient {
	return &EmbedClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

// Model returns the embedding model name baked into saved indexes.
func (c *EmbedClient) Model() string { return c.model }

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed encodes one text into a vector.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(ollamaEmbedReq{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", domain.ErrEncoding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%w: ollama embed: status %d", domain.ErrEncoding, resp.StatusCode)
	}

	var result ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: ollama embed decode: %v", domain.ErrEncoding, err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama embed: empty embedding", domain.ErrEncoding)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch encodes texts one at a time. Ollama's embeddings endpoint takes a
// single prompt per call.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vals, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		embeddings[i] = vals
	}
	return embeddings, nil
}
