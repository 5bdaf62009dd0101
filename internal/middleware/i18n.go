package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// DefaultLocales are the content languages offered when none are configured.
var DefaultLocales = []string{"en", "id", "es", "pt", "de", "fr", "ja"}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// Negotiator picks the best supported locale for a request.
type Negotiator struct {
	supported []language.Tag
	matcher   language.Matcher
	fallback  string
}

func NewNegotiator(supported []string, fallback string) *Negotiator {
	if len(supported) == 0 {
		supported = DefaultLocales
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		if tag, err := language.Parse(s); err == nil {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	fb := baseOf(tags[0])
	if tag, err := language.Parse(fallback); err == nil {
		fb = baseOf(tag)
	}
	return &Negotiator{supported: tags, matcher: language.NewMatcher(tags), fallback: fb}
}

// Locale returns a base language code, trying X-Locale, Accept-Language and
// finally the most likely language of country.
func (n *Negotiator) Locale(r *http.Request, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			if loc, ok := n.match(tag); ok {
				return loc
			}
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			if loc, ok := n.match(tags...); ok {
				return loc
			}
		}
	}
	if country != "" {
		if tag, err := language.Parse("und-" + country); err == nil {
			base, _ := tag.Base()
			if loc, ok := n.match(language.Make(base.String())); ok {
				return loc
			}
		}
	}
	return n.fallback
}

func (n *Negotiator) match(tags ...language.Tag) (string, bool) {
	_, idx, conf := n.matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return baseOf(n.supported[idx]), true
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// I18N stores the negotiated locale and resolved country on the request context.
func I18N(n *Negotiator, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, n.Locale(r, country))
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

// ResolveCountry resolves a best-effort ISO country code from proxy headers,
// an explicit locale region, or the GeoIP lookup.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	headerHints := []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}
	for _, key := range headerHints {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" {
			return strings.ToUpper(val)
		}
	}
	if region := localeRegion(r.Header.Get("X-Locale")); region != "" {
		return region
	}
	if region := localeRegion(r.Header.Get("Accept-Language")); region != "" {
		return region
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil && country != "" {
				return strings.ToUpper(country)
			}
		}
	}
	return ""
}

// localeRegion returns the region of the first tag that names one explicitly.
func localeRegion(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ""
	}
	for _, tag := range tags {
		if region, conf := tag.Region(); conf == language.Exact {
			return region.String()
		}
	}
	return ""
}
