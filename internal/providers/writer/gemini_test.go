package writer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"contentgen/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGeminiWriterParsesUsage(t *testing.T) {
	var gotPath, gotKey string
	w, err := NewGeminiWriter(GeminiOptions{
		APIKey: "dummy",
		Model:  "gemini-2.5-flash",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("x-goog-api-key")
			return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"{\"title\":\"Hello\",\"content\":\"Body\"}"}]}}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":20,"totalTokenCount":30}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiWriter returned error: %v", err)
	}
	res, err := w.Write(context.Background(), Request{Params: domain.JobParams{Keyword: "go"}, Index: 1, Total: 1})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "dummy" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if res.Title != "Hello" || res.Content != "Body" || !res.Structured {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Usage.TotalTokens != 30 || res.Usage.PromptTokens != 10 || res.Usage.CompletionTokens != 20 {
		t.Fatalf("usage = %+v", res.Usage)
	}
}

func TestGeminiWriterBlockedPromptIsRetryable(t *testing.T) {
	w, err := NewGeminiWriter(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiWriter returned error: %v", err)
	}
	_, err = w.Write(context.Background(), Request{Index: 1, Total: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTerminal(err) {
		t.Fatalf("blocked prompt should be retryable: %v", err)
	}
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestGeminiWriterForbiddenIsTerminal(t *testing.T) {
	w, err := NewGeminiWriter(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(403, `{"error":{"message":"API key not valid","status":"PERMISSION_DENIED"}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiWriter returned error: %v", err)
	}
	_, err = w.Write(context.Background(), Request{Index: 1, Total: 1})
	if !IsTerminal(err) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("error should carry provider detail: %v", err)
	}
}

func TestNewGeminiWriterRequiresKey(t *testing.T) {
	_, err := NewGeminiWriter(GeminiOptions{})
	if !errors.Is(err, domain.ErrProviderConfig) {
		t.Fatalf("expected ErrProviderConfig, got %v", err)
	}
}
