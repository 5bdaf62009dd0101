package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"contentgen/internal/audit"
	"contentgen/internal/domain"
	"contentgen/internal/notify"
	"contentgen/internal/providers/writer"
)

// memStore mimics the guarded SQL of the Postgres repositories.
type memStore struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	artifacts map[string]map[int]domain.Artifact
	progress  []int
	failWrite error
}

func newMemStore() *memStore {
	return &memStore{jobs: map[string]*domain.Job{}, artifacts: map[string]map[int]domain.Artifact{}}
}

func (m *memStore) addJob(job domain.Job) *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	cp := job
	m.jobs[job.ID] = &cp
	return &cp
}

func (m *memStore) job(id string) domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

type memJobs struct{ *memStore }

func (r memJobs) Create(ctx context.Context, job *domain.Job) error {
	r.addJob(*job)
	return nil
}

func (r memJobs) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r memJobs) GetForUser(ctx context.Context, id, userID string) (*domain.Job, error) {
	j, err := r.GetByID(ctx, id)
	if err != nil || j.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (r memJobs) MarkInProgress(ctx context.Context, id string, leaseUntil time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	if j.Status.IsTerminal() {
		return nil
	}
	j.Status = domain.JobStatusInProgress
	j.LeaseUntil = &leaseUntil
	return nil
}

func (r memJobs) UpdateProgress(ctx context.Context, id string, completed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	j := r.jobs[id]
	if j.Status.IsTerminal() {
		return nil
	}
	j.CompletedCount = max(j.CompletedCount, completed)
	r.progress = append(r.progress, j.CompletedCount)
	return nil
}

func (r memJobs) MarkCompleted(ctx context.Context, id string, completed int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	if j.Status.IsTerminal() || completed != j.TargetCount {
		return false, nil
	}
	j.Status = domain.JobStatusCompleted
	j.CompletedCount = completed
	j.LastError = ""
	j.RefundSettled = true
	now := time.Now()
	j.CompletedAt = &now
	return true, nil
}

func (r memJobs) MarkFailed(ctx context.Context, id, lastError string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	completed := len(r.artifacts[id])
	if j.Status.IsTerminal() || completed >= j.TargetCount {
		return false, nil
	}
	j.Status = domain.JobStatusFailed
	j.CompletedCount = completed
	j.LastError = lastError
	now := time.Now()
	j.ErrorAt = &now
	return true, nil
}

func (r memJobs) MarkRefundSettled(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j := r.jobs[id]; j.Status == domain.JobStatusFailed {
		j.RefundSettled = true
	}
	return nil
}

type memArtifacts struct{ *memStore }

func (r memArtifacts) Create(ctx context.Context, a *domain.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[a.JobID]
	if !ok || j.Status.IsTerminal() || a.Index < 1 || a.Index > j.TargetCount {
		return domain.ErrDuplicateOperation
	}
	rows := r.artifacts[a.JobID]
	if rows == nil {
		rows = map[int]domain.Artifact{}
		r.artifacts[a.JobID] = rows
	}
	if _, exists := rows[a.Index]; exists {
		return domain.ErrDuplicateOperation
	}
	rows[a.Index] = *a
	return nil
}

func (r memArtifacts) CountByJob(ctx context.Context, jobID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.artifacts[jobID]), nil
}

func (r memArtifacts) ListIndexes(ctx context.Context, jobID string) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for idx := range r.artifacts[jobID] {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

func (r memArtifacts) ListTitles(ctx context.Context, jobID string) ([]string, error) {
	list, _ := r.ListByJob(ctx, jobID)
	var out []string
	for _, a := range list {
		out = append(out, a.Title)
	}
	return out, nil
}

func (r memArtifacts) ListByJob(ctx context.Context, jobID string) ([]domain.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Artifact
	for _, a := range r.artifacts[jobID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// memLedger is idempotent per (kind, reference id) like credit_ledger.
type memLedger struct {
	mu        sync.Mutex
	charged   map[string]int64
	refunded  map[string]int64
	refundErr error
	calls     int
}

func newMemLedger() *memLedger {
	return &memLedger{charged: map[string]int64{}, refunded: map[string]int64{}}
}

func (l *memLedger) Balance(ctx context.Context, userID string) (int64, error) { return 0, nil }

func (l *memLedger) Charge(ctx context.Context, userID string, amount int64, refType, refID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.charged[refID]; !ok {
		l.charged[refID] = amount
	}
	return nil
}

func (l *memLedger) Refund(ctx context.Context, userID string, amount int64, refType, refID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.refundErr != nil {
		return l.refundErr
	}
	if _, ok := l.refunded[refID]; !ok {
		l.refunded[refID] = amount
	}
	return nil
}

// scriptedWriter fails an index on the call numbers listed in fail.
type scriptedWriter struct {
	mu    sync.Mutex
	calls map[int]int
	fail  map[int][]int
	order []int
	hook  func(ctx context.Context, index, call int) error
}

func newScriptedWriter(fail map[int][]int) *scriptedWriter {
	return &scriptedWriter{calls: map[int]int{}, fail: fail}
}

func (w *scriptedWriter) Name() string { return "scripted" }

func (w *scriptedWriter) Write(ctx context.Context, req writer.Request) (*writer.Result, error) {
	w.mu.Lock()
	w.calls[req.Index]++
	call := w.calls[req.Index]
	w.order = append(w.order, req.Index)
	failing := false
	for _, c := range w.fail[req.Index] {
		if c == call || c == -1 {
			failing = true
		}
	}
	hook := w.hook
	w.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, req.Index, call); err != nil {
			return nil, err
		}
	}
	if failing {
		return nil, &writer.Error{Provider: "scripted", Reason: "http_503", Status: 503, Retryable: true}
	}
	return &writer.Result{
		Title:      "Title " + string(rune('A'+req.Index-1)),
		Content:    "content",
		Structured: true,
		Provider:   "scripted",
		Usage:      domain.TokenUsage{TotalTokens: 10},
	}, nil
}

func (w *scriptedWriter) callsFor(index int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[index]
}

type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *capturePublisher) Publish(ev notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

type captureAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *captureAuditor) Record(ctx context.Context, ev audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

var errBoom = errors.New("boom")
