package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contentgen/internal/domain"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiWriter calls the generateContent endpoint.
type GeminiWriter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

const geminiDefaultTimeout = 180 * time.Second

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func NewGeminiWriter(opts GeminiOptions) (*GeminiWriter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, terminal(ProviderGemini, "missing_api_key", 0, domain.ErrProviderConfig)
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiWriter{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (g *GeminiWriter) Name() string { return ProviderGemini }

func (g *GeminiWriter) Write(ctx context.Context, req Request) (*Result, error) {
	out, text, err := g.generate(ctx, geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: articleSystemPrompt}}},
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildArticlePrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.8,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, err
	}
	title, content, structured := parseArticle(text)
	return &Result{
		Title:      title,
		Content:    content,
		Raw:        text,
		Structured: structured,
		Provider:   ProviderGemini,
		Usage: domain.TokenUsage{
			PromptTokens:     out.UsageMetadata.PromptTokenCount,
			CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      out.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// Summarize implements Summarizer.
func (g *GeminiWriter) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	_, text, err := g.generate(ctx, geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: summarySystemPrompt}}},
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildSummaryPrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{Temperature: 0.2, CandidateCount: 1},
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (g *GeminiWriter) generate(ctx context.Context, payload geminiRequest) (*geminiResponse, string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, "", terminal(ProviderGemini, "encode_request", 0, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return nil, "", terminal(ProviderGemini, "build_request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, "", retryable(ProviderGemini, "http_request", 0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		var apiErr geminiErrorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(body, &apiErr)
		return nil, "", classifyStatus(ProviderGemini, resp.StatusCode, apiErr.Error.Message)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", retryable(ProviderGemini, "decode_response", resp.StatusCode, err)
	}
	if reason := out.PromptFeedback.BlockReason; reason != "" {
		return nil, "", retryable(ProviderGemini, "blocked", resp.StatusCode, errors.New(reason))
	}
	text := g.extractText(out)
	if text == "" {
		return nil, "", retryable(ProviderGemini, "empty_response", resp.StatusCode, errors.New("empty response"))
	}
	return &out, text, nil
}

func (g *GeminiWriter) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
}

func (g *GeminiWriter) extractText(resp geminiResponse) string {
	for _, candidate := range resp.Candidates {
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text
		}
	}
	return ""
}

var (
	_ Writer     = (*GeminiWriter)(nil)
	_ Summarizer = (*GeminiWriter)(nil)
)
