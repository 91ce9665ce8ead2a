// Package llm provides chat-completion and embedding providers. The variant
// is picked once from configuration.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Embedder is the interface for generating embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Options selects and configures the providers.
type Options struct {
	Provider          string
	Model             string
	EmbeddingProvider string
	EmbeddingModel    string
	OllamaURL         string
	OpenAIModel       string
	GeminiModel       string
	APIKeyEnv         string
	Temperature       float64
	Timeout           time.Duration
	Logger            *logger.Logger
}

func (o Options) apiKey() string {
	if o.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(o.APIKeyEnv)
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 120 * time.Second
	}
	return o.Timeout
}

// NewProvider creates the chat provider named by opts.Provider.
func NewProvider(opts Options) (Provider, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	switch strings.ToLower(opts.Provider) {
	case "ollama":
		p, err := NewOllamaProvider(opts.Model, opts.OllamaURL, opts.Temperature, opts.timeout())
		if err != nil {
			return nil, err
		}
		log.Info("using ollama chat provider", "model", opts.Model)
		return p, nil
	case "openai":
		p := NewOpenAIProvider(opts.OpenAIModel, opts.apiKey(), opts.Temperature, opts.timeout())
		if !p.IsConfigured() {
			return nil, fmt.Errorf("openai provider needs an API key in $%s", opts.APIKeyEnv)
		}
		log.Info("using openai chat provider", "model", opts.OpenAIModel)
		return p, nil
	case "gemini":
		p := NewGeminiProvider(opts.GeminiModel, opts.apiKey(), opts.Temperature, opts.timeout())
		if !p.IsConfigured() {
			return nil, fmt.Errorf("gemini provider needs an API key in $%s", opts.APIKeyEnv)
		}
		log.Info("using gemini chat provider", "model", opts.GeminiModel)
		return p, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
}

// NewEmbedder creates the embedder named by opts.EmbeddingProvider.
func NewEmbedder(opts Options) (Embedder, error) {
	switch strings.ToLower(opts.EmbeddingProvider) {
	case "ollama":
		return NewOllamaEmbedder(opts.EmbeddingModel, opts.OllamaURL, opts.timeout())
	case "openai":
		if opts.apiKey() == "" {
			return nil, fmt.Errorf("openai embeddings need an API key in $%s", opts.APIKeyEnv)
		}
		return NewOpenAIEmbedder(opts.EmbeddingModel, opts.apiKey(), opts.timeout()), nil
	case "gemini":
		if opts.apiKey() == "" {
			return nil, fmt.Errorf("gemini embeddings need an API key in $%s", opts.APIKeyEnv)
		}
		return NewGeminiEmbedder(opts.EmbeddingModel, opts.apiKey(), opts.timeout()), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", opts.EmbeddingProvider)
}

// ProbeDimension embeds a short probe text and returns the vector length.
func ProbeDimension(ctx context.Context, e Embedder) (int, error) {
	vecs, err := e.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, fmt.Errorf("probing embedding dimension: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, errors.New("probing embedding dimension: empty embedding")
	}
	return len(vecs[0]), nil
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float64, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// postJSON sends body as JSON and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
