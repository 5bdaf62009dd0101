package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"contentgen/internal/infra"
	"contentgen/internal/sqlinline"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrUnsupportedProvider is returned for provider names without a writer implementation.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Store reads and rotates writer provider API keys kept in integration_tokens.
// It is the fallback when the key is absent from the environment.
type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

// NormalizeProvider lower-cases a provider name and validates it.
func NormalizeProvider(provider string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	switch p {
	case ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

// APIKey returns the stored key for provider, or "" when none is stored.
func (s *Store) APIKey(ctx context.Context, provider string) (string, error) {
	p, err := NormalizeProvider(provider)
	if err != nil {
		return "", err
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, p)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetAPIKey stores or rotates the key for provider.
func (s *Store) SetAPIKey(ctx context.Context, provider, key string) error {
	p, err := NormalizeProvider(provider)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", p)
	}
	return s.upsert(ctx, p, key, map[string]any{
		"rotated_at": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
