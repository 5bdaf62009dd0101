package writer

import (
	"context"
	"errors"
	"testing"
)

type fakeKeys map[string]string

func (f fakeKeys) APIKey(ctx context.Context, provider string) (string, error) {
	if key, ok := f[provider]; ok {
		return key, nil
	}
	return "", errors.New("lookup failed")
}

func TestNewSelectsProvider(t *testing.T) {
	w, s, err := New(context.Background(), Options{Provider: "static"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if w.Name() != ProviderStatic || s != nil {
		t.Fatalf("unexpected static wiring: %s %v", w.Name(), s)
	}

	w, s, err = New(context.Background(), Options{Provider: "Gemini", Keys: fakeKeys{"gemini": "stored"}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if w.Name() != ProviderGemini || s == nil {
		t.Fatalf("expected gemini writer with summarizer, got %s", w.Name())
	}
	if w.(*GeminiWriter).apiKey != "stored" {
		t.Fatal("expected key from store")
	}
}

func TestNewPrefersEnvironmentKey(t *testing.T) {
	w, _, err := New(context.Background(), Options{Provider: "openai", OpenAIAPIKey: "env", Keys: fakeKeys{}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if w.(*OpenAIWriter).apiKey != "env" {
		t.Fatal("expected environment key")
	}
}

func TestNewMissingKeyIsTerminal(t *testing.T) {
	_, _, err := New(context.Background(), Options{Provider: "openai", Keys: fakeKeys{"openai": ""}})
	if !IsTerminal(err) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if _, _, err := New(context.Background(), Options{Provider: "bogus"}); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestStaticWriterDiversifiesTitles(t *testing.T) {
	w := NewStaticWriter()
	seen := map[string]bool{}
	for i := 1; i <= 8; i++ {
		res, err := w.Write(context.Background(), Request{Index: i, Total: 8})
		if err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
		if seen[res.Title] {
			t.Fatalf("duplicate title %q", res.Title)
		}
		seen[res.Title] = true
	}
}
