package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// GeminiProvider calls the Gemini generateContent endpoint.
type GeminiProvider struct {
	Model       string
	APIKey      string
	Temperature float64
	BaseURL     string
	client      *http.Client
}

func NewGeminiProvider(model, apiKey string, temperature float64, timeout time.Duration) *GeminiProvider {
	return &GeminiProvider{
		Model:       model,
		APIKey:      apiKey,
		Temperature: temperature,
		BaseURL:     geminiBaseURL,
		client:      &http.Client{Timeout: timeout},
	}
}

func (g *GeminiProvider) IsConfigured() bool {
	return g.APIKey != ""
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.APIKey == "" {
		return "", errors.New("Gemini API key not configured")
	}
	body := map[string]any{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		"generationConfig": map[string]any{
			"maxOutputTokens": maxTokens,
			"temperature":     g.Temperature,
		},
	}

	var result struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)
	if err := postJSON(ctx, g.client, url, map[string]string{"x-goog-api-key": g.APIKey}, body, &result); err != nil {
		return "", fmt.Errorf("Gemini API: %w", err)
	}
	if len(result.Candidates) == 0 {
		return "", errors.New("no candidates in Gemini response")
	}

	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// GeminiEmbedder calls the Gemini batchEmbedContents endpoint.
type GeminiEmbedder struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewGeminiEmbedder(model, apiKey string, timeout time.Duration) *GeminiEmbedder {
	return &GeminiEmbedder{
		Model:   model,
		APIKey:  apiKey,
		BaseURL: geminiBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	model := "models/" + strings.TrimPrefix(g.Model, "models/")
	requests := make([]map[string]any, len(texts))
	for i, t := range texts {
		requests[i] = map[string]any{
			"model":   model,
			"content": geminiContent{Parts: []geminiPart{{Text: t}}},
		}
	}

	var result struct {
		Embeddings []struct {
			Values []float64 `json:"values"`
		} `json:"embeddings"`
	}
	url := fmt.Sprintf("%s/%s:batchEmbedContents", g.BaseURL, model)
	if err := postJSON(ctx, g.client, url, map[string]string{"x-goog-api-key": g.APIKey},
		map[string]any{"requests": requests}, &result); err != nil {
		return nil, fmt.Errorf("Gemini embeddings: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini embeddings: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, e := range result.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
