package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/jobs"
	"contentgen/internal/middleware"
	"contentgen/pkg/zip"
)

// JobService is the request-side job API served over HTTP.
type JobService interface {
	Create(ctx context.Context, userID string, in jobs.CreateInput) (*domain.Job, error)
	Get(ctx context.Context, userID, jobID string) (*domain.Job, error)
	Artifacts(ctx context.Context, userID, jobID string) ([]domain.Artifact, error)
	Export(ctx context.Context, userID, jobID string) ([]zip.Entry, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

// Pinger reports database reachability for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Jobs   JobService
	DB     Pinger
	Logger infra.Logger
}

func NewApp(svc JobService, db Pinger, log infra.Logger) *App {
	return &App{Jobs: svc, DB: db, Logger: log.With().Str("component", "http").Logger()}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// fail maps service errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidJob):
		a.error(w, http.StatusBadRequest, "invalid_job", err.Error())
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
	default:
		a.Logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
