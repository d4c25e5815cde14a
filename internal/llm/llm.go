package llm

import (
	"context"
	"errors"

	"resume-review-backend/internal/extract"
)

var (
	// ErrProviderUnavailable reports a network, HTTP, or timeout failure
	// talking to the model provider. Safe to retry.
	ErrProviderUnavailable = errors.New("model provider unavailable")

	// ErrInvalidResponse reports that the provider answered but the content
	// did not satisfy the review contract (non-JSON, or required fields empty
	// after normalization).
	ErrInvalidResponse = errors.New("invalid model response")
)

// ReviewInput carries the parse output and role context for one review call.
type ReviewInput struct {
	RoleTarget  string
	TargetLevel string
	RawText     string
	Sections    extract.Sections
}

// RewriteSuggestion is one concrete before/after edit with its rationale.
type RewriteSuggestion struct {
	Before string `json:"before"`
	After  string `json:"after"`
	Why    string `json:"why"`
}

// Review is a normalized, validated model review of one resume.
type Review struct {
	Score              int                 `json:"score"`
	Strengths          []string            `json:"strengths"`
	Weaknesses         []string            `json:"weaknesses"`
	MissingKeywords    []string            `json:"missingKeywords"`
	RewriteSuggestions []RewriteSuggestion `json:"rewriteSuggestions"`
	NextActions        []string            `json:"nextActions"`
	Model              string              `json:"model"`
}

// Client abstracts model providers for resume review. Implementations make a
// single provider call per invocation; retries belong to the pipeline's
// re-run mechanism, not here.
type Client interface {
	Review(ctx context.Context, input ReviewInput) (Review, error)
}
