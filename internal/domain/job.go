package domain

import (
	"strings"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further orchestration may mutate the job.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobParams is the opaque generation parameter bag stored with a job.
type JobParams struct {
	Keyword    string `json:"keyword"`
	Persona    string `json:"persona,omitempty"`
	Length     string `json:"length,omitempty"`
	Style      string `json:"style,omitempty"`
	Locale     string `json:"locale,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
	SourceText string `json:"source_text,omitempty"`
}

// Normalize trims user-supplied fields in place.
func (p *JobParams) Normalize() {
	p.Keyword = strings.TrimSpace(p.Keyword)
	p.Persona = strings.TrimSpace(p.Persona)
	p.Length = strings.ToLower(strings.TrimSpace(p.Length))
	p.Style = strings.ToLower(strings.TrimSpace(p.Style))
	p.Locale = strings.ToLower(strings.TrimSpace(p.Locale))
	p.SourceID = strings.TrimSpace(p.SourceID)
	p.SourceText = strings.TrimSpace(p.SourceText)
}

// Job is one request to produce TargetCount artifacts.
type Job struct {
	ID             string
	UserID         string
	Status         JobStatus
	TargetCount    int
	CompletedCount int
	CostPerItem    int64
	Params         JobParams
	LastError      string
	RefundSettled  bool
	StartedAt      *time.Time
	CompletedAt    *time.Time
	ErrorAt        *time.Time
	LeaseUntil     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Shortfall returns how many artifacts are still missing.
func (j Job) Shortfall() int {
	if j.CompletedCount >= j.TargetCount {
		return 0
	}
	return j.TargetCount - j.CompletedCount
}

// TotalCost is the amount charged when the job was created.
func (j Job) TotalCost() int64 {
	return j.CostPerItem * int64(j.TargetCount)
}
