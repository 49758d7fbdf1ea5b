package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const anthropicVersion = "2023-06-01"

// extractor pulls the completion text out of a provider-specific response
// body. One implementation per wire scheme keeps the shape knowledge out of
// the fallback loop.
type extractor interface {
	ExtractText(raw []byte) string
}

var extractors = map[Scheme]extractor{
	SchemeGemini:    geminiExtractor{},
	SchemeOpenAI:    openAIExtractor{},
	SchemeAnthropic: anthropicExtractor{},
}

func newAttemptRequest(ctx context.Context, p Provider, model, prompt string, budget Budget) (*http.Request, error) {
	switch p.Scheme {
	case SchemeGemini:
		return newGeminiRequest(ctx, p, model, prompt, budget)
	case SchemeOpenAI:
		return newOpenAIRequest(ctx, p, model, prompt, budget)
	case SchemeAnthropic:
		return newAnthropicRequest(ctx, p, model, prompt, budget)
	}
	return nil, fmt.Errorf("unknown provider scheme %q", p.Scheme)
}

// --- Gemini ---

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func newGeminiRequest(ctx context.Context, p Provider, model, prompt string, budget Budget) (*http.Request, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: budget.MaxTokens,
			Temperature:     0.7,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(p.BaseURL, "/"), url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.APIKey)
	return req, nil
}

type geminiExtractor struct{}

func (geminiExtractor) ExtractText(raw []byte) string {
	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

// --- OpenAI-compatible (openai, deepseek, perplexity) ---

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func newOpenAIRequest(ctx context.Context, p Provider, model, prompt string, budget Budget) (*http.Request, error) {
	payload := openAIChatRequest{
		Model:     model,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens: budget.MaxTokens,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	return req, nil
}

type openAIExtractor struct{}

func (openAIExtractor) ExtractText(raw []byte) string {
	var out openAIChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	if len(out.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(out.Choices[0].Message.Content)
}

// --- Anthropic ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func newAnthropicRequest(ctx context.Context, p Provider, model, prompt string, budget Budget) (*http.Request, error) {
	payload := anthropicRequest{
		Model:     model,
		MaxTokens: budget.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

type anthropicExtractor struct{}

func (anthropicExtractor) ExtractText(raw []byte) string {
	var out anthropicResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	for _, block := range out.Content {
		if strings.TrimSpace(block.Text) != "" {
			return block.Text
		}
	}
	return ""
}
