// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate talks to the language model server: document generation,
// structured field extraction, embeddings, and claim checking. The server
// speaks the Ollama JSON dialect (/api/generate, /api/embeddings).
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/content-engine/internal/httputil"
	"github.com/pdiddy/content-engine/pkg/types"
)

// ErrNotConfigured is returned when no model endpoint is set.
var ErrNotConfigured = errors.New("generation endpoint not configured")

const maxResponseBytes = 8 << 20

// Client is the HTTP adapter for the model server.
type Client struct {
	HTTP       *httputil.Client
	Endpoint   string
	Model      string
	EmbedModel string
	APIKey     string
}

// NewClient builds a Client from cfg.
func NewClient(cfg types.GenerationConfig, hc *httputil.Client) *Client {
	return &Client{
		HTTP:       hc,
		Endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		Model:      cfg.Model,
		EmbedModel: cfg.EmbedModel,
		APIKey:     cfg.APIKey,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Generate renders the prompt for pc and returns the model's text.
func (c *Client) Generate(ctx context.Context, pc PromptContext) (string, error) {
	prompt, err := RenderPrompt(pc)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	text, err := c.complete(ctx, prompt, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("model returned empty content")
	}
	return text, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	model := c.EmbedModel
	if model == "" {
		model = c.Model
	}
	if err := c.post(ctx, "/api/embeddings", embedRequest{Model: model, Prompt: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("model returned an empty embedding")
	}
	return out.Embedding, nil
}

// complete sends one non-streaming generate call. format "json" asks the
// server to constrain output to JSON.
func (c *Client) complete(ctx context.Context, prompt, format string) (string, error) {
	var out generateResponse
	req := generateRequest{Model: c.Model, Prompt: prompt, Format: format}
	if err := c.post(ctx, "/api/generate", req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.Endpoint == "" {
		return ErrNotConfigured
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTP
	if client == nil {
		client = &httputil.Client{HTTP: http.DefaultClient}
	}
	resp, err := client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("calling model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding model server response: %w", err)
	}
	return nil
}
