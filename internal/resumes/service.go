package resumes

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"resume-review-backend/internal/queue"
	"resume-review-backend/internal/shared/storage/object"
	"resume-review-backend/internal/shared/telemetry"
)

// Service contains business logic for resumes: upload, re-run, reads and
// deletes. Pipeline execution itself lives in internal/pipeline; the service
// only publishes triggers.
type Service struct {
	Store   Store
	Objects object.ObjectStore
	Queue   queue.Client
}

// UploadInput carries one multipart upload.
type UploadInput struct {
	OwnerID     string
	FileName    string
	RoleTarget  string
	TargetLevel string
	RequestID   string
	Body        io.Reader
}

// Upload stores the file, creates the resume row and publishes the pipeline
// trigger. If the trigger cannot be published the row stays UPLOADED so a
// re-run can recover it.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Resume, error) {
	if in.OwnerID == "" || in.FileName == "" {
		return Resume{}, errors.New("ownerID and fileName are required")
	}

	storageKey, sizeBytes, mimeType, err := s.Objects.Save(ctx, in.OwnerID, in.FileName, in.Body)
	if err != nil {
		return Resume{}, err
	}

	resume := Resume{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		FileName:    in.FileName,
		MimeType:    mimeType,
		SizeBytes:   sizeBytes,
		StorageKey:  storageKey,
		RoleTarget:  in.RoleTarget,
		TargetLevel: in.TargetLevel,
		Status:      StatusUploaded,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Store.Create(ctx, resume); err != nil {
		if delErr := s.Objects.Delete(ctx, storageKey); delErr != nil {
			telemetry.Error("resumes.upload.orphan_blob", map[string]any{
				"storage_key": storageKey,
				"err":         delErr.Error(),
			})
		}
		return Resume{}, err
	}

	if err := s.publish(ctx, queue.EventResumeUploaded, resume.ID, in.OwnerID, in.RequestID); err != nil {
		return Resume{}, err
	}
	return resume, nil
}

// Rerun resets the resume to UPLOADED and publishes a fresh trigger. Safe to
// call from READY or FAILED; the pipeline's writes are idempotent either way.
func (s *Service) Rerun(ctx context.Context, resumeID, ownerID, requestID string) (Resume, error) {
	resume, err := s.Store.GetByIDForOwner(ctx, resumeID, ownerID)
	if err != nil {
		return Resume{}, err
	}

	if err := s.Store.UpdateStatus(ctx, resumeID, StatusUploaded); err != nil {
		return Resume{}, err
	}
	resume.Status = StatusUploaded
	resume.LastErrorCode = ""
	resume.LastErrorMessage = ""

	if err := s.publish(ctx, queue.EventResumeRerun, resumeID, ownerID, requestID); err != nil {
		return Resume{}, err
	}
	return resume, nil
}

// Detail is the full read model for one resume.
type Detail struct {
	Resume  Resume               `json:"resume"`
	Parse   *ParseResult         `json:"parse,omitempty"`
	Review  *ReviewRecord        `json:"review,omitempty"`
	History []ReviewHistoryEntry `json:"history"`
}

// Get returns the resume with its parse, current review and history. Parse
// and review are nil until the pipeline has produced them.
func (s *Service) Get(ctx context.Context, resumeID, ownerID string) (Detail, error) {
	resume, err := s.Store.GetByIDForOwner(ctx, resumeID, ownerID)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Resume: resume, History: []ReviewHistoryEntry{}}

	parse, err := s.Store.GetParseResult(ctx, resumeID)
	switch {
	case err == nil:
		detail.Parse = &parse
	case !errors.Is(err, ErrNotFound):
		return Detail{}, err
	}

	review, err := s.Store.GetReviewResult(ctx, resumeID)
	switch {
	case err == nil:
		detail.Review = &review
	case !errors.Is(err, ErrNotFound):
		return Detail{}, err
	}

	history, err := s.Store.ListReviewHistory(ctx, resumeID)
	if err != nil {
		return Detail{}, err
	}
	detail.History = history
	return detail, nil
}

// ListItem is one row of the owner's resume list, with the current score
// when a review exists.
type ListItem struct {
	Resume
	Score *int `json:"score,omitempty"`
}

// List returns the owner's resumes newest-first.
func (s *Service) List(ctx context.Context, ownerID string) ([]ListItem, error) {
	rows, err := s.Store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]ListItem, 0, len(rows))
	for _, resume := range rows {
		item := ListItem{Resume: resume}
		review, err := s.Store.GetReviewResult(ctx, resume.ID)
		switch {
		case err == nil:
			score := review.Review.Score
			item.Score = &score
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// UpdateTarget updates the role context used by the next review run.
func (s *Service) UpdateTarget(ctx context.Context, resumeID, ownerID, roleTarget, targetLevel string) (Resume, error) {
	if err := s.Store.UpdateTarget(ctx, resumeID, ownerID, roleTarget, targetLevel); err != nil {
		return Resume{}, err
	}
	return s.Store.GetByIDForOwner(ctx, resumeID, ownerID)
}

// Delete removes the resume row, its children and the stored blob. A missing
// blob is not an error; the row is the source of truth.
func (s *Service) Delete(ctx context.Context, resumeID, ownerID string) error {
	resume, err := s.Store.GetByIDForOwner(ctx, resumeID, ownerID)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, resumeID, ownerID); err != nil {
		return err
	}
	if err := s.Objects.Delete(ctx, resume.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Error("resumes.delete.blob", map[string]any{
			"resume_id":   resumeID,
			"storage_key": resume.StorageKey,
			"err":         err.Error(),
		})
	}
	return nil
}

// DownloadURL returns a short-lived signed URL for the original file.
func (s *Service) DownloadURL(ctx context.Context, resumeID, ownerID string, ttl time.Duration) (string, error) {
	resume, err := s.Store.GetByIDForOwner(ctx, resumeID, ownerID)
	if err != nil {
		return "", err
	}
	return s.Objects.SignURL(ctx, resume.StorageKey, ttl)
}

func (s *Service) publish(ctx context.Context, event, resumeID, ownerID, requestID string) error {
	msg := queue.Message{
		Name:       event,
		ResumeID:   resumeID,
		OwnerID:    ownerID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("resumes.trigger.publish_failed", map[string]any{
			"resume_id":  resumeID,
			"event":      event,
			"request_id": requestID,
			"err":        err.Error(),
		})
		return err
	}
	telemetry.Info("resumes.trigger.published", map[string]any{
		"resume_id":  resumeID,
		"event":      event,
		"request_id": requestID,
	})
	return nil
}
