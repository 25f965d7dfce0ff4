package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	embedModel string
	httpClient *http.Client
}

func New(baseURL, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Embedder builds embedding vectors via the Ollama embed API. EmbedQuery
// degrades to a zero vector of the configured dimension on any failure, so
// downstream ranking falls back to "no signal" instead of crashing the
// request.
type Embedder struct {
	client    *Client
	dimension int
}

func NewEmbedder(client *Client, dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 768
	}
	return &Embedder{client: client, dimension: dimension}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embeddings/texts mismatch: %d/%d", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) []float32 {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 || len(vectors[0]) == 0 {
		slog.Warn("query_embedding_degraded_to_zero_vector", "error", err)
		return make([]float32, e.dimension)
	}
	return vectors[0]
}
