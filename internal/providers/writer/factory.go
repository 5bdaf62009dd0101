package writer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// KeySource resolves provider API keys that are not set in the environment.
type KeySource interface {
	APIKey(ctx context.Context, provider string) (string, error)
}

type Options struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	Timeout       time.Duration
	Keys          KeySource
	OnWarning     func(reason, detail string)
}

// New builds the configured writer. The returned Summarizer is nil for the
// static provider, which makes reference resolution fall back to truncation.
func New(ctx context.Context, opts Options) (Writer, Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = openAIDefaultTimeout
	}
	client := &http.Client{Timeout: timeout}
	switch provider {
	case ProviderStatic:
		return NewStaticWriter(), nil, nil
	case ProviderOpenAI:
		key, err := resolveKey(ctx, opts.Keys, provider, opts.OpenAIAPIKey)
		if err != nil {
			return nil, nil, err
		}
		w, err := NewOpenAIWriter(OpenAIOptions{
			APIKey:       key,
			Model:        opts.OpenAIModel,
			BaseURL:      opts.OpenAIBaseURL,
			Organization: opts.OpenAIOrg,
			HTTPClient:   client,
			OnWarning:    opts.OnWarning,
		})
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	case ProviderGemini:
		key, err := resolveKey(ctx, opts.Keys, provider, opts.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		w, err := NewGeminiWriter(GeminiOptions{
			APIKey:     key,
			Model:      opts.GeminiModel,
			BaseURL:    opts.GeminiBaseURL,
			HTTPClient: client,
		})
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	default:
		return nil, nil, fmt.Errorf("unsupported writer provider %q", opts.Provider)
	}
}

func resolveKey(ctx context.Context, keys KeySource, provider, envKey string) (string, error) {
	if key := strings.TrimSpace(envKey); key != "" {
		return key, nil
	}
	if keys == nil {
		return "", nil
	}
	key, err := keys.APIKey(ctx, provider)
	if err != nil {
		return "", fmt.Errorf("load %s api key: %w", provider, err)
	}
	return key, nil
}
