package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

const defaultCacheSize = 4096

// Resolver maps client IPs to ISO country codes using a MaxMind GeoIP2
// database. Results are memoized per IP. A nil *Resolver is valid and reports
// ErrUnavailable.
type Resolver struct {
	reader *geoip2.Reader
	cache  *countryCache
}

// NewResolver opens the GeoIP database at path. An empty path yields a nil
// resolver and no error.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader, cache: newCountryCache(defaultCacheSize)}, nil
}

// CountryCode returns the ISO country code for ip. Loopback and private
// addresses resolve to "".
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	ip = strings.TrimSpace(ip)
	if code, ok := r.cache.get(ip); ok {
		return code, nil
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	code := ""
	if !parsed.IsLoopback() && !parsed.IsPrivate() {
		record, err := r.reader.Country(parsed)
		if err != nil {
			return "", fmt.Errorf("geoip: lookup country: %w", err)
		}
		if record != nil {
			code = record.Country.IsoCode
		}
	}
	r.cache.put(ip, code)
	return code, nil
}

// Lookup adapts the resolver to the middleware.CountryLookup signature. It
// returns nil for a nil resolver so the middleware skips IP lookups entirely.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.CountryCode
}

func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// countryCache is a size-capped memo. When full it is cleared wholesale.
type countryCache struct {
	mu    sync.RWMutex
	max   int
	items map[string]string
}

func newCountryCache(max int) *countryCache {
	if max <= 0 {
		max = defaultCacheSize
	}
	return &countryCache{max: max, items: make(map[string]string, max)}
}

func (c *countryCache) get(ip string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	code, ok := c.items[ip]
	return code, ok
}

func (c *countryCache) put(ip, code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.max {
		clear(c.items)
	}
	c.items[ip] = code
}
