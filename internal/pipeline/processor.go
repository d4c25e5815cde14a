package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-review-backend/internal/extract"
	"resume-review-backend/internal/llm"
	"resume-review-backend/internal/resumes"
	"resume-review-backend/internal/shared/metrics"
	"resume-review-backend/internal/shared/storage/object"
	"resume-review-backend/internal/shared/telemetry"
)

// Processor drives one resume through the full pipeline:
// PARSING (download + extract + record parse) then REVIEWING (model review +
// record history and current review) then READY. Any step failure marks the
// row FAILED with a classified code and message.
//
// Runs are idempotent: parse and review writes are keyed by resume so a
// duplicate trigger overwrites rather than duplicates, except history, which
// records every completed run.
type Processor struct {
	Store   resumes.Store
	Objects object.ObjectStore
	LLM     llm.Client
}

// Run executes the pipeline for one resume. The returned error is a
// *RunError carrying the failure code; nil means the resume reached READY.
func (p *Processor) Run(ctx context.Context, resumeID, ownerID string) error {
	resume, err := p.Store.GetByID(ctx, resumeID)
	if err != nil {
		// Row already gone (deleted after enqueue). Nothing to annotate.
		code, retryable := classifyFailure(err)
		telemetry.Error("pipeline.load_failed", map[string]any{
			"resume_id": resumeID,
			"owner_id":  ownerID,
			"code":      code,
			"err":       err.Error(),
		})
		return &RunError{Code: code, Retryable: retryable, Err: err}
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	metrics.IncRunStarted()
	telemetry.Info("pipeline.run_started", map[string]any{
		"resume_id": resumeID,
		"owner_id":  resume.OwnerID,
		"run_id":    runID,
	})

	if err := p.transition(ctx, resumeID, runID, resume.Status, resumes.StatusParsing); err != nil {
		return p.fail(ctx, resume, runID, startedAt, err)
	}

	data, err := p.download(ctx, resume.StorageKey)
	if err != nil {
		return p.fail(ctx, resume, runID, startedAt, err)
	}

	extracted, err := extract.Extract(resume.MimeType, resume.FileName, data)
	if err != nil {
		return p.fail(ctx, resume, runID, startedAt, err)
	}

	parse := resumes.ParseResult{
		ResumeID:      resumeID,
		RunID:         runID,
		RawText:       extracted.RawText,
		Sections:      extracted.Sections,
		ParserVersion: extracted.ParserVersion,
		SchemaVersion: resumes.ParseSchemaVersion,
	}
	if err := p.Store.UpsertParseResult(ctx, parse); err != nil {
		return p.fail(ctx, resume, runID, startedAt, fmt.Errorf("record parse result: %w", err))
	}

	if err := p.transition(ctx, resumeID, runID, resumes.StatusParsing, resumes.StatusReviewing); err != nil {
		return p.fail(ctx, resume, runID, startedAt, err)
	}

	review, err := p.LLM.Review(ctx, llm.ReviewInput{
		RoleTarget:  resume.RoleTarget,
		TargetLevel: resume.TargetLevel,
		RawText:     extracted.RawText,
		Sections:    extracted.Sections,
	})
	if err != nil {
		return p.fail(ctx, resume, runID, startedAt, err)
	}

	entry := resumes.ReviewHistoryEntry{
		ID:       uuid.NewString(),
		ResumeID: resumeID,
		RunID:    runID,
		Review:   review,
	}
	record := resumes.ReviewRecord{
		ResumeID:      resumeID,
		RunID:         runID,
		Review:        review,
		SchemaVersion: resumes.ReviewSchemaVersion,
	}
	if err := p.Store.RecordReview(ctx, entry, record); err != nil {
		return p.fail(ctx, resume, runID, startedAt, fmt.Errorf("record review result: %w", err))
	}

	if err := p.transition(ctx, resumeID, runID, resumes.StatusReviewing, resumes.StatusReady); err != nil {
		return p.fail(ctx, resume, runID, startedAt, err)
	}

	duration := durationMs(startedAt)
	metrics.IncRunCompleted()
	metrics.ObserveRunDurationMs(duration)
	telemetry.Info("pipeline.run_completed", map[string]any{
		"resume_id":   resumeID,
		"owner_id":    resume.OwnerID,
		"run_id":      runID,
		"score":       review.Score,
		"model":       review.Model,
		"duration_ms": duration,
	})
	return nil
}

// transition moves the row to the next status and emits one pipeline.status
// event per completed transition.
func (p *Processor) transition(ctx context.Context, resumeID, runID, from, to string) error {
	if err := p.Store.UpdateStatus(ctx, resumeID, to); err != nil {
		return fmt.Errorf("set status %s: %w", strings.ToLower(to), err)
	}
	telemetry.Info("pipeline.status", map[string]any{
		"resume_id":         resumeID,
		"run_id":            runID,
		"status_transition": from + "->" + to,
	})
	return nil
}

func (p *Processor) download(ctx context.Context, storageKey string) ([]byte, error) {
	body, err := p.Objects.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return data, nil
}

// fail writes the FAILED status on a background context so a cancelled run
// still leaves an annotated row behind.
func (p *Processor) fail(ctx context.Context, resume resumes.Resume, runID string, startedAt time.Time, err error) error {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)

	if markErr := p.Store.MarkFailed(context.Background(), resume.ID, code, msg); markErr != nil {
		telemetry.Error("pipeline.mark_failed", map[string]any{
			"resume_id": resume.ID,
			"run_id":    runID,
			"err":       markErr.Error(),
			"orig":      msg,
		})
	}

	duration := durationMs(startedAt)
	metrics.IncRunFailed()
	metrics.ObserveRunDurationMs(duration)
	telemetry.Error("pipeline.run_failed", map[string]any{
		"resume_id":   resume.ID,
		"owner_id":    resume.OwnerID,
		"run_id":      runID,
		"code":        code,
		"retryable":   retryable,
		"err":         msg,
		"duration_ms": duration,
	})
	return &RunError{Code: code, Retryable: retryable, Err: err}
}

func durationMs(startedAt time.Time) float64 {
	return float64(time.Since(startedAt).Microseconds()) / 1000.0
}
