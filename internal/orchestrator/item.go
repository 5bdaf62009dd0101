package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"contentgen/internal/audit"
	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/providers/writer"
)

// Auditor records best-effort audit events.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// JobContext is the immutable input shared by every item of one run.
type JobContext struct {
	Job       *domain.Job
	Reference string
}

// ItemGenerator produces the artifact for one (job, index) pair.
type ItemGenerator struct {
	artifacts domain.ArtifactRepository
	writer    writer.Writer
	audit     Auditor
	log       infra.Logger
	now       func() time.Time
}

func NewItemGenerator(artifacts domain.ArtifactRepository, w writer.Writer, auditor Auditor, log infra.Logger) *ItemGenerator {
	return &ItemGenerator{
		artifacts: artifacts,
		writer:    w,
		audit:     auditor,
		log:       log.With().Str("component", "item_generator").Logger(),
		now:       time.Now,
	}
}

// Generate creates artifact index for jc.Job unless it already exists. attempt
// is 1-based. A writer error is returned as-is and nothing is persisted.
func (g *ItemGenerator) Generate(ctx context.Context, jc JobContext, index, attempt int) error {
	job := jc.Job
	done, err := g.artifacts.ListIndexes(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list artifact indexes: %w", err)
	}
	if slices.Contains(done, index) || len(done) >= job.TargetCount {
		return nil
	}
	titles, err := g.artifacts.ListTitles(ctx, job.ID)
	if err != nil {
		g.log.Warn().Err(err).Str("job_id", job.ID).Msg("list titles failed; generating without hint")
		titles = nil
	}

	start := g.now()
	res, err := g.writer.Write(ctx, writer.Request{
		JobID:          job.ID,
		Params:         job.Params,
		Reference:      jc.Reference,
		Index:          index,
		Total:          job.TargetCount,
		ExistingTitles: dedupeTitles(titles, job.Params.Locale),
	})
	latency := g.now().Sub(start)
	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty result", domain.ErrProviderFailure)
	}
	if err != nil {
		g.record(ctx, job, index, attempt, latency, false, nil, err)
		return err
	}

	artifact := &domain.Artifact{
		JobID:               job.ID,
		Index:               index,
		Title:               res.Title,
		Content:             res.Content,
		Structured:          res.Structured,
		Provider:            res.Provider,
		Usage:               res.Usage,
		RetryCountAtSuccess: attempt - 1,
	}
	if err := g.artifacts.Create(ctx, artifact); err != nil {
		if errors.Is(err, domain.ErrDuplicateOperation) {
			return nil
		}
		return fmt.Errorf("persist artifact %d: %w", index, err)
	}
	if !res.Structured {
		g.log.Warn().Str("job_id", job.ID).Int("index", index).Msg("writer output was not structured; stored raw payload")
	}
	g.record(ctx, job, index, attempt, latency, true, res, nil)
	return nil
}

func (g *ItemGenerator) record(ctx context.Context, job *domain.Job, index, attempt int, latency time.Duration, ok bool, res *writer.Result, err error) {
	if g.audit == nil {
		return
	}
	ev := audit.Event{
		Type:     audit.EventItemGenerated,
		UserID:   job.UserID,
		JobID:    job.ID,
		Index:    index,
		Attempt:  attempt,
		Success:  ok,
		Latency:  latency,
		Provider: g.writer.Name(),
	}
	if res != nil {
		ev.Usage = res.Usage
		ev.Provider = res.Provider
	}
	if err != nil {
		ev.Type = audit.EventItemFailed
		ev.Reason = err.Error()
	}
	g.audit.Record(ctx, ev)
}

// dedupeTitles lower-cases with the job locale so titles differing only in
// case are sent once.
func dedupeTitles(titles []string, locale string) []string {
	if len(titles) == 0 {
		return nil
	}
	tag := language.Und
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	lower := cases.Lower(tag)
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := lower.String(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
