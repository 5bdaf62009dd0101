package domain

import "time"

// TokenUsage reports the tokens consumed by one generation call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Artifact is one produced content item belonging to a job. Index is 1-based
// and unique per job.
type Artifact struct {
	ID                  string
	JobID               string
	Index               int
	Title               string
	Content             string
	Structured          bool
	Provider            string
	Usage               TokenUsage
	RetryCountAtSuccess int
	CreatedAt           time.Time
}
