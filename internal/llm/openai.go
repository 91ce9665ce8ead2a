package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider is an OpenAI API provider.
type OpenAIProvider struct {
	Model       string
	APIKey      string
	Temperature float64
	BaseURL     string
	client      *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(model, apiKey string, temperature float64, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		Model:       model,
		APIKey:      apiKey,
		Temperature: temperature,
		BaseURL:     openAIBaseURL,
		client:      &http.Client{Timeout: timeout},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a prompt to OpenAI and returns the response.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.APIKey == "" {
		return "", errors.New("OpenAI API key not configured")
	}

	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": o.Temperature,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, o.BaseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + o.APIKey}, body, &result); err != nil {
		return "", fmt.Errorf("OpenAI API: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", errors.New("no choices in OpenAI response")
	}
	return result.Choices[0].Message.Content, nil
}

// OpenAIEmbedder generates embeddings with the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewOpenAIEmbedder(model, apiKey string, timeout time.Duration) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		Model:   model,
		APIKey:  apiKey,
		BaseURL: openAIBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	body := map[string]any{"model": e.Model, "input": texts}
	if err := postJSON(ctx, e.client, e.BaseURL+"/embeddings",
		map[string]string{"Authorization": "Bearer " + e.APIKey}, body, &result); err != nil {
		return nil, fmt.Errorf("OpenAI embeddings: %w", err)
	}

	out := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("OpenAI embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("OpenAI embeddings: missing embedding %d", i)
		}
	}
	return out, nil
}
