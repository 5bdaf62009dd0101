package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
	lastQueryArgs []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.lastQueryArgs = args
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestAPIKeyTrimsStoredToken(t *testing.T) {
	exec := &stubExecutor{token: " sk-test "}
	store := NewStore(exec)
	key, err := store.APIKey(context.Background(), " OpenAI ")
	if err != nil {
		t.Fatalf("APIKey error: %v", err)
	}
	if key != "sk-test" {
		t.Fatalf("expected sk-test, got %q", key)
	}
	if len(exec.lastQueryArgs) != 1 || exec.lastQueryArgs[0] != ProviderOpenAI {
		t.Fatalf("expected normalized provider argument, got %#v", exec.lastQueryArgs)
	}
}

func TestAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.APIKey(context.Background(), ProviderGemini)
	if err != nil {
		t.Fatalf("APIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestAPIKeyUnsupportedProvider(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if _, err := store.APIKey(context.Background(), "qwen"); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestSetAPIKey(t *testing.T) {
	for _, provider := range []string{ProviderOpenAI, ProviderGemini} {
		exec := &stubExecutor{}
		store := NewStore(exec)
		if err := store.SetAPIKey(context.Background(), provider, "secret"); err != nil {
			t.Fatalf("SetAPIKey(%s) error: %v", provider, err)
		}
		if len(exec.exec.args) != 3 {
			t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
		}
		if v, ok := exec.exec.args[0].(string); !ok || v != provider {
			t.Fatalf("expected provider argument %q, got %v", provider, exec.exec.args[0])
		}
		if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
			t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
		}
	}
}

func TestSetAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetAPIKey(context.Background(), ProviderOpenAI, " "); err == nil {
		t.Fatal("expected error for empty key")
	}
}
