package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model       string
	Temperature float64
	client      *api.Client
}

// newOllamaClient falls back to $OLLAMA_HOST when baseURL is empty. Every
// request is bounded by timeout.
func newOllamaClient(baseURL string, timeout time.Duration) (*api.Client, error) {
	u := envconfig.Host()
	if baseURL != "" {
		var err error
		if u, err = url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("parsing ollama url: %w", err)
		}
	}
	return api.NewClient(u, &http.Client{Timeout: timeout}), nil
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, temperature float64, timeout time.Duration) (*OllamaProvider, error) {
	client, err := newOllamaClient(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OllamaProvider{Model: model, Temperature: temperature, client: client}, nil
}

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	list, err := o.client.List(ctx)
	if err != nil {
		return false
	}
	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range list.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	return false
}

// Generate sends a prompt to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    o.Model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]any{
			"num_predict": maxTokens,
			"temperature": o.Temperature,
		},
	}

	var b strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return b.String(), nil
}

// OllamaEmbedder generates embeddings via the Ollama API.
type OllamaEmbedder struct {
	Model  string
	client *api.Client
}

// NewOllamaEmbedder creates a new Ollama embedder.
func NewOllamaEmbedder(model, baseURL string, timeout time.Duration) (*OllamaEmbedder, error) {
	client, err := newOllamaClient(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedder{Model: model, client: client}, nil
}

// Embed generates embeddings for the given texts.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		out[i] = make([]float64, len(v))
		for j, x := range v {
			out[i][j] = float64(x)
		}
	}
	return out, nil
}
