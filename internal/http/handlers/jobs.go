package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"contentgen/internal/domain"
	"contentgen/internal/jobs"
	"contentgen/internal/middleware"
	"contentgen/pkg/zip"
)

type createJobRequest struct {
	Count      int    `json:"count"`
	Keyword    string `json:"keyword"`
	Persona    string `json:"persona"`
	Length     string `json:"length"`
	Style      string `json:"style"`
	Locale     string `json:"locale"`
	SourceID   string `json:"source_id"`
	SourceText string `json:"source_text"`
}

type jobResponse struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	TargetCount    int        `json:"target_count"`
	CompletedCount int        `json:"completed_count"`
	Shortfall      int        `json:"shortfall"`
	CreditsCharged int64      `json:"credits_charged"`
	LastError      string     `json:"last_error,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type artifactResponse struct {
	Index      int               `json:"index"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Structured bool              `json:"structured"`
	Provider   string            `json:"provider"`
	Usage      domain.TokenUsage `json:"usage"`
	CreatedAt  time.Time         `json:"created_at"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:             j.ID,
		Status:         string(j.Status),
		TargetCount:    j.TargetCount,
		CompletedCount: j.CompletedCount,
		Shortfall:      j.Shortfall(),
		CreditsCharged: j.TotalCost(),
		LastError:      j.LastError,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		CreatedAt:      j.CreatedAt,
	}
}

// CreateJob charges credits and enqueues a batch generation job.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	job, err := a.Jobs.Create(r.Context(), userID, jobs.CreateInput{
		Count: req.Count,
		Params: domain.JobParams{
			Keyword:    req.Keyword,
			Persona:    req.Persona,
			Length:     req.Length,
			Style:      req.Style,
			Locale:     locale,
			SourceID:   req.SourceID,
			SourceText: req.SourceText,
		},
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"job_id":          job.ID,
		"status":          job.Status,
		"target_count":    job.TargetCount,
		"credits_charged": job.TotalCost(),
	})
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	job, err := a.Jobs.Get(r.Context(), userID, chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

func (a *App) JobArtifacts(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	list, err := a.Jobs.Artifacts(r.Context(), userID, chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]artifactResponse, 0, len(list))
	for _, art := range list {
		items = append(items, artifactResponse{
			Index:      art.Index,
			Title:      art.Title,
			Content:    art.Content,
			Structured: art.Structured,
			Provider:   art.Provider,
			Usage:      art.Usage,
			CreatedAt:  art.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// ExportJob streams the job's artifacts as a zip archive.
func (a *App) ExportJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	entries, err := a.Jobs.Export(r.Context(), userID, jobID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	if err := zip.Write(w, entries); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("write export archive")
	}
}

func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	balance, err := a.Jobs.Balance(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"balance": balance})
}
