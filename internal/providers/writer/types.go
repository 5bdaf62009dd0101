package writer

import (
	"context"
	"errors"
	"fmt"

	"contentgen/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderStatic = "static"
)

// Request is everything one generation call needs. Index and Total let the
// model diversify items of the same job; ExistingTitles is a duplicate-avoidance
// hint.
type Request struct {
	JobID          string
	Params         domain.JobParams
	Reference      string
	Index          int
	Total          int
	ExistingTitles []string
}

// Result is one generated article. When the model output could not be parsed
// as the structured shape, Structured is false and Content holds the raw text.
type Result struct {
	Title      string
	Content    string
	Raw        string
	Structured bool
	Usage      domain.TokenUsage
	Provider   string
}

// Writer performs a single article generation call.
type Writer interface {
	Name() string
	Write(ctx context.Context, req Request) (*Result, error)
}

// SummaryRequest describes a reference-material summarization.
type SummaryRequest struct {
	Source   string
	Persona  string
	Style    string
	Locale   string
	MaxChars int
}

// Summarizer condenses raw source material into generation context.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// Error is returned by provider calls. Retryable distinguishes transient
// failures (timeouts, rate limits, 5xx, empty output) from configuration or
// refusal failures.
type Error struct {
	Provider  string
	Reason    string
	Status    int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps provider errors onto the domain taxonomy.
func (e *Error) Is(target error) bool {
	if e.Retryable {
		return target == domain.ErrProviderFailure
	}
	return target == domain.ErrProviderConfig
}

// IsTerminal reports whether retrying err cannot succeed without operator action.
func IsTerminal(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return !perr.Retryable
	}
	return errors.Is(err, domain.ErrProviderConfig)
}

func retryable(provider, reason string, status int, err error) *Error {
	return &Error{Provider: provider, Reason: reason, Status: status, Retryable: true, Err: err}
}

func terminal(provider, reason string, status int, err error) *Error {
	return &Error{Provider: provider, Reason: reason, Status: status, Retryable: false, Err: err}
}

// classifyStatus turns a non-2xx HTTP status into a provider error.
func classifyStatus(provider string, status int, detail string) *Error {
	reason := fmt.Sprintf("http_%d", status)
	var err error
	if detail != "" {
		err = errors.New(detail)
	}
	switch {
	case status == 408 || status == 409 || status == 425 || status == 429 || status >= 500:
		return retryable(provider, reason, status, err)
	default:
		return terminal(provider, reason, status, err)
	}
}
