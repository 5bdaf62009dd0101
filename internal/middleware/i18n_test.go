package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestNegotiatorLocale(t *testing.T) {
	n := NewNegotiator([]string{"en", "id", "de"}, "en")
	tests := []struct {
		name    string
		setup   func(r *http.Request)
		country string
		want    string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ID")
			},
			country: "US",
			want:    "id",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "de-AT,en;q=0.5")
			},
			want: "de",
		},
		{
			name: "accept-language weights respected",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en;q=0.2,id-ID;q=0.9")
			},
			want: "id",
		},
		{
			name:    "country likely language",
			country: "ID",
			want:    "id",
		},
		{
			name:    "country with unsupported language falls back",
			country: "JP",
			want:    "en",
		},
		{
			name: "unsupported header falls back",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "xx-invalid-tag-!!")
			},
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			got := n.Locale(req, tc.country)
			if got != tc.want {
				t.Fatalf("Locale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "us")
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "US",
		},
		{
			name: "locale region fallback",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "en-AU")
			},
			want: "AU",
		},
		{
			name: "accept-language region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "GB",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name: "resolver error returns empty",
			resolver: func(ip string) (string, error) {
				return "", assertError("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			got := ResolveCountry(req, tc.resolver)
			if got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestI18NStoresLocaleAndCountry(t *testing.T) {
	var locale, country string
	h := I18N(NewNegotiator(nil, "en"), func(ip string) (string, error) { return "id", nil })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if locale != "id" || country != "ID" {
		t.Fatalf("locale=%q country=%q, want id/ID", locale, country)
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != "en" {
		t.Fatalf("LocaleFromContext() default = %q, want %q", got, "en")
	}
	ctx = context.WithValue(ctx, LocaleKey, "id")
	if got := LocaleFromContext(ctx); got != "id" {
		t.Fatalf("LocaleFromContext() with value = %q, want %q", got, "id")
	}
}
