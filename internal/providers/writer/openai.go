package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentgen/internal/domain"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	OnWarning    func(reason, detail string)
}

// OpenAIWriter talks to the chat completions endpoint in JSON mode.
type OpenAIWriter struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

const openAIDefaultTimeout = 180 * time.Second

const defaultOpenAIModel = "gpt-4o-mini"

var openAIModelCanonical = map[string]string{
	"gpt-4o-mini":  "gpt-4o-mini",
	"gpt-4o":       "gpt-4o",
	"gpt-4.1-mini": "gpt-4.1-mini",
	"gpt-4.1":      "gpt-4.1",
}

var openAIModelAliases = map[string]string{
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
	"gpt-41":                 "gpt-4.1",
	"gpt-41-mini":            "gpt-4.1-mini",
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewOpenAIWriter(opts OpenAIOptions) (*OpenAIWriter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, terminal(ProviderOpenAI, "missing_api_key", 0, domain.ErrProviderConfig)
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	modelInput := strings.TrimSpace(opts.Model)
	model, reason := normalizeOpenAIModel(modelInput)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", coalesce(modelInput, defaultOpenAIModel), model))
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIWriter{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

func (o *OpenAIWriter) Name() string { return ProviderOpenAI }

func (o *OpenAIWriter) Write(ctx context.Context, req Request) (*Result, error) {
	out, err := o.complete(ctx, openAIChatRequest{
		Model:          o.model,
		Temperature:    0.8,
		ResponseFormat: &openAIFormat{Type: "json_object"},
		Messages: []openAIMessage{
			{Role: "system", Content: articleSystemPrompt},
			{Role: "user", Content: buildArticlePrompt(req)},
		},
	})
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	title, content, structured := parseArticle(text)
	return &Result{
		Title:      title,
		Content:    content,
		Raw:        text,
		Structured: structured,
		Provider:   ProviderOpenAI,
		Usage: domain.TokenUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}

// Summarize implements Summarizer.
func (o *OpenAIWriter) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	out, err := o.complete(ctx, openAIChatRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openAIMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: buildSummaryPrompt(req)},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (o *OpenAIWriter) complete(ctx context.Context, payload openAIChatRequest) (*openAIChatResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, terminal(ProviderOpenAI, "encode_request", 0, err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, terminal(ProviderOpenAI, "build_request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, retryable(ProviderOpenAI, "http_request", 0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		var apiErr openAIErrorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(body, &apiErr)
		return nil, classifyStatus(ProviderOpenAI, resp.StatusCode, apiErr.Error.Message)
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, retryable(ProviderOpenAI, "decode_response", resp.StatusCode, err)
	}
	if len(out.Choices) == 0 {
		return nil, retryable(ProviderOpenAI, "empty_choices", resp.StatusCode, errors.New("no choices"))
	}
	if refusal := strings.TrimSpace(out.Choices[0].Message.Refusal); refusal != "" {
		return nil, retryable(ProviderOpenAI, "refusal", resp.StatusCode, errors.New(refusal))
	}
	if strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, retryable(ProviderOpenAI, "empty_response", resp.StatusCode, errors.New("empty response"))
	}
	return &out, nil
}

var (
	_ Writer     = (*OpenAIWriter)(nil)
	_ Summarizer = (*OpenAIWriter)(nil)
)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
