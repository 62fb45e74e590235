// Package embedding turns FAQ text into vectors for semantic search.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Provider generates vector embeddings from text.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Client implements Provider against an Ollama-compatible embeddings API.
type Client struct {
	endpoint  string
	model     string
	dimension int

	mu       sync.Mutex
	observed int
}

// NewClient creates an embedding client for the given endpoint and model.
// dimension is the fallback vector size reported before the first call.
func NewClient(endpoint, model string, dimension int) *Client {
	return &Client{endpoint: endpoint, model: model, dimension: dimension}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed sends each text to the endpoint and returns one vector per text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := c.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}

	if len(vectors) > 0 && len(vectors[0]) > 0 {
		c.mu.Lock()
		if c.observed == 0 {
			c.observed = len(vectors[0])
		}
		c.mu.Unlock()
	}
	return vectors, nil
}

func (c *Client) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	return result.Embedding, nil
}

// Dimension returns the vector dimension, preferring the size observed
// on the first successful call over the configured default.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.observed > 0 {
		return c.observed
	}
	return c.dimension
}
