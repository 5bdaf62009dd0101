package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"contentgen/internal/domain"
)

func TestOpenAIWriterSendsHintsAndParsesUsage(t *testing.T) {
	var captured openAIChatRequest
	w, err := NewOpenAIWriter(OpenAIOptions{
		APIKey:       "dummy",
		Organization: "org-1",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Authorization") != "Bearer dummy" {
				t.Errorf("authorization = %q", r.Header.Get("Authorization"))
			}
			if r.Header.Get("OpenAI-Organization") != "org-1" {
				t.Errorf("organization = %q", r.Header.Get("OpenAI-Organization"))
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
			return jsonResponse(200, `{"choices":[{"message":{"content":"{\"title\":\"T\",\"content\":\"C\"}"}}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIWriter returned error: %v", err)
	}
	req := Request{
		Params:         domain.JobParams{Keyword: "coffee", Persona: "a barista"},
		Reference:      "Beans are roasted.",
		Index:          2,
		Total:          5,
		ExistingTitles: []string{"Espresso Basics"},
	}
	res, err := w.Write(context.Background(), req)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if res.Title != "T" || res.Content != "C" || res.Provider != ProviderOpenAI {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Usage.TotalTokens != 7 {
		t.Fatalf("total tokens = %d, want 7", res.Usage.TotalTokens)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json response format, got %+v", captured.ResponseFormat)
	}
	user := captured.Messages[len(captured.Messages)-1].Content
	for _, want := range []string{"article 2 of 5", "Espresso Basics", "a barista", "Beans are roasted."} {
		if !strings.Contains(user, want) {
			t.Fatalf("prompt missing %q: %s", want, user)
		}
	}
}

func TestOpenAIWriterKeepsUnstructuredOutput(t *testing.T) {
	w, err := NewOpenAIWriter(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"choices":[{"message":{"content":"# Plain Title\n\nfree text"}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIWriter returned error: %v", err)
	}
	res, err := w.Write(context.Background(), Request{Index: 1, Total: 1})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if res.Structured {
		t.Fatal("expected unstructured result")
	}
	if res.Title != "Plain Title" {
		t.Fatalf("title = %q", res.Title)
	}
	if !strings.Contains(res.Content, "free text") {
		t.Fatalf("raw content lost: %q", res.Content)
	}
}

func TestOpenAIWriterErrorClassification(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		status   int
		err      error
		body     string
		terminal bool
	}{
		{name: "unauthorized", status: 401, body: `{"error":{"message":"bad key"}}`, terminal: true},
		{name: "bad_request", status: 400, body: `{}`, terminal: true},
		{name: "rate_limited", status: 429, body: `{}`, terminal: false},
		{name: "server_error", status: 503, body: `{}`, terminal: false},
		{name: "transport", err: errors.New("connection reset"), terminal: false},
		{name: "empty_output", status: 200, body: `{"choices":[{"message":{"content":"  "}}]}`, terminal: false},
		{name: "no_choices", status: 200, body: `{"choices":[]}`, terminal: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w, err := NewOpenAIWriter(OpenAIOptions{
				APIKey: "dummy",
				HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return jsonResponse(tc.status, tc.body), nil
				})},
			})
			if err != nil {
				t.Fatalf("NewOpenAIWriter returned error: %v", err)
			}
			_, err = w.Write(context.Background(), Request{Index: 1, Total: 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsTerminal(err); got != tc.terminal {
				t.Fatalf("IsTerminal = %v, want %v (%v)", got, tc.terminal, err)
			}
		})
	}
}

func TestNormalizeOpenAIModel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		model  string
		reason string
	}{
		{name: "exact_default", input: "gpt-4o-mini", model: "gpt-4o-mini", reason: ""},
		{name: "alias", input: "gpt4o mini", model: "gpt-4o-mini", reason: "alias"},
		{name: "unsupported", input: "davinci", model: "gpt-4o-mini", reason: "defaulted"},
		{name: "empty", input: "", model: "gpt-4o-mini", reason: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotModel, gotReason := normalizeOpenAIModel(tc.input)
			if gotModel != tc.model {
				t.Fatalf("model = %q, want %q", gotModel, tc.model)
			}
			if gotReason != tc.reason {
				t.Fatalf("reason = %q, want %q", gotReason, tc.reason)
			}
		})
	}
}
