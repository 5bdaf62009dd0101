package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/pkg/zip"
)

type Config struct {
	CostPerItem    int64
	MaxTargetCount int
}

type CreateInput struct {
	Count  int
	Params domain.JobParams
}

// Service is the request-side entry point: it reserves credits and enqueues
// jobs for the worker pool. It never runs generation itself.
type Service struct {
	jobs      domain.JobRepository
	artifacts domain.ArtifactRepository
	ledger    domain.CreditLedger
	cfg       Config
	log       infra.Logger
	newID     func() string
}

func NewService(jobs domain.JobRepository, artifacts domain.ArtifactRepository, ledger domain.CreditLedger, cfg Config, log infra.Logger) *Service {
	if cfg.MaxTargetCount <= 0 {
		cfg.MaxTargetCount = 50
	}
	return &Service{
		jobs:      jobs,
		artifacts: artifacts,
		ledger:    ledger,
		cfg:       cfg,
		log:       log.With().Str("component", "jobs").Logger(),
		newID:     func() string { return uuid.NewString() },
	}
}

var validLengths = map[string]bool{"": true, "short": true, "medium": true, "long": true}

func (s *Service) validate(userID string, in *CreateInput) error {
	if _, err := uuid.Parse(userID); err != nil {
		return domain.ErrUnauthorized
	}
	in.Params.Normalize()
	if in.Params.Keyword == "" {
		return fmt.Errorf("%w: keyword is required", domain.ErrInvalidJob)
	}
	if in.Count < 1 || in.Count > s.cfg.MaxTargetCount {
		return fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidJob, s.cfg.MaxTargetCount)
	}
	if !validLengths[in.Params.Length] {
		return fmt.Errorf("%w: length must be short, medium or long", domain.ErrInvalidJob)
	}
	return nil
}

// Create charges count × costPerItem and inserts a PENDING job. When the insert
// fails the charge is refunded under the same reference.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Job, error) {
	if err := s.validate(userID, &in); err != nil {
		return nil, err
	}
	job := &domain.Job{
		ID:          s.newID(),
		UserID:      userID,
		Status:      domain.JobStatusPending,
		TargetCount: in.Count,
		CostPerItem: s.cfg.CostPerItem,
		Params:      in.Params,
	}
	price := job.TotalCost()
	if err := s.ledger.Charge(ctx, userID, price, domain.LedgerReferenceJob, job.ID); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return nil, err
		}
		return nil, fmt.Errorf("charge credits: %w", err)
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		if refundErr := s.ledger.Refund(ctx, userID, price, domain.LedgerReferenceJob, job.ID, "job creation failed"); refundErr != nil {
			s.log.Error().Err(refundErr).Str("job_id", job.ID).Int64("amount", price).Msg("refund after failed insert failed")
		}
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Info().Str("job_id", job.ID).Str("user_id", userID).Int("count", job.TargetCount).Int64("charged", price).Msg("job enqueued")
	return job, nil
}

func (s *Service) Get(ctx context.Context, userID, jobID string) (*domain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.jobs.GetForUser(ctx, jobID, userID)
}

// Artifacts returns the job's artifacts ordered by index.
func (s *Service) Artifacts(ctx context.Context, userID, jobID string) ([]domain.Artifact, error) {
	if _, err := s.Get(ctx, userID, jobID); err != nil {
		return nil, err
	}
	return s.artifacts.ListByJob(ctx, jobID)
}

// Export renders every produced artifact as a markdown zip entry.
func (s *Service) Export(ctx context.Context, userID, jobID string) ([]zip.Entry, error) {
	items, err := s.Artifacts(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNotFound
	}
	entries := make([]zip.Entry, 0, len(items))
	for _, a := range items {
		body := a.Content
		if a.Title != "" && !strings.HasPrefix(strings.TrimSpace(body), "#") {
			body = "# " + a.Title + "\n\n" + body
		}
		entries = append(entries, zip.Entry{
			Filename: exportFilename(a),
			Modified: a.CreatedAt,
			Data:     []byte(body),
		})
	}
	return entries, nil
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	return s.ledger.Balance(ctx, userID)
}

func exportFilename(a domain.Artifact) string {
	slug := slugify(a.Title)
	if slug == "" {
		return fmt.Sprintf("%03d.md", a.Index)
	}
	return fmt.Sprintf("%03d-%s.md", a.Index, slug)
}

func slugify(title string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
		if sb.Len() >= 60 {
			break
		}
	}
	return strings.Trim(sb.String(), "-")
}
