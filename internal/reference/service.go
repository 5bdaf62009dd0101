package reference

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/providers/writer"
)

const (
	defaultMaxChars = 4000
	defaultMinChars = 400
)

type Options struct {
	Repo       domain.ReferenceRepository
	Cache      Cache
	Summarizer writer.Summarizer
	Logger     *infra.Logger
	CacheTTL   time.Duration
	MaxChars   int
	MinChars   int
}

// Service resolves the shared reference material for a job. Summaries are
// computed once per (source, variant) and reused across jobs.
type Service struct {
	repo       domain.ReferenceRepository
	cache      Cache
	summarizer writer.Summarizer
	log        infra.Logger
	ttl        time.Duration
	maxChars   int
	minChars   int
}

func NewService(opts Options) *Service {
	log := infra.NopLogger()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	minChars := opts.MinChars
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	return &Service{
		repo:       opts.Repo,
		cache:      opts.Cache,
		summarizer: opts.Summarizer,
		log:        log.With().Str("component", "reference").Logger(),
		ttl:        opts.CacheTTL,
		maxChars:   maxChars,
		minChars:   minChars,
	}
}

// SourceID returns the caller-supplied source id or a fingerprint of the text.
func SourceID(params domain.JobParams) string {
	if id := strings.TrimSpace(params.SourceID); id != "" {
		return id
	}
	text := strings.TrimSpace(params.SourceText)
	if text == "" {
		return ""
	}
	return "xx:" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// VariantKey fingerprints the parameters that change how a summary is written.
func VariantKey(params domain.JobParams) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(params.Persona)),
		params.Length,
		params.Style,
		params.Locale,
	}
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "\x1f")), 16)
}

// Resolve never fails the job: store and summarizer errors degrade to a
// truncation of the raw source.
func (s *Service) Resolve(ctx context.Context, params domain.JobParams) string {
	sourceID := SourceID(params)
	if sourceID == "" {
		return ""
	}
	variant := VariantKey(params)
	cacheKey := sourceID + ":" + variant
	log := s.log.With().Str("source_id", sourceID).Str("variant", variant).Logger()

	if s.cache != nil {
		if val, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
			log.Warn().Err(err).Msg("reference cache get failed")
		} else if ok {
			return val
		}
	}
	if s.repo != nil {
		summary, err := s.repo.Get(ctx, sourceID, variant)
		switch {
		case err == nil:
			s.fill(ctx, cacheKey, summary)
			return summary
		case errors.Is(err, domain.ErrNotFound):
		default:
			log.Warn().Err(err).Msg("reference store get failed")
		}
	}

	raw := strings.TrimSpace(params.SourceText)
	if raw == "" {
		return ""
	}
	if s.summarizer == nil {
		return Truncate(raw, s.maxChars, s.minChars)
	}
	summary, err := s.summarizer.Summarize(ctx, writer.SummaryRequest{
		Source:   raw,
		Persona:  params.Persona,
		Style:    params.Style,
		Locale:   params.Locale,
		MaxChars: s.maxChars,
	})
	summary = strings.TrimSpace(summary)
	if err != nil || summary == "" {
		log.Warn().Err(err).Msg("reference summarization failed, truncating source")
		return Truncate(raw, s.maxChars, s.minChars)
	}
	if s.repo != nil {
		if err := s.repo.Put(ctx, sourceID, variant, summary); err != nil {
			log.Warn().Err(err).Msg("reference store put failed")
		}
	}
	s.fill(ctx, cacheKey, summary)
	return summary
}

func (s *Service) fill(ctx context.Context, key, summary string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("reference cache set failed")
	}
}
