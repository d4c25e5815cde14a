package resumes

import "context"

// Store defines persistence for resumes and their parse/review children.
//
// Owner-facing mutations take (resumeID, ownerID) so cross-owner access is
// structurally impossible. Pipeline writes are keyed by resumeID alone: the
// pipeline loads the row first and acts on behalf of its owner.
type Store interface {
	Create(ctx context.Context, resume Resume) error
	GetByID(ctx context.Context, resumeID string) (Resume, error)
	GetByIDForOwner(ctx context.Context, resumeID, ownerID string) (Resume, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Resume, error)
	UpdateTarget(ctx context.Context, resumeID, ownerID, roleTarget, targetLevel string) error
	Delete(ctx context.Context, resumeID, ownerID string) error

	// UpdateStatus moves a resume to a non-failed status and clears any
	// previous failure annotation. MarkFailed records the failure code and
	// message together with the FAILED status. Both bump updatedAt.
	UpdateStatus(ctx context.Context, resumeID, status string) error
	MarkFailed(ctx context.Context, resumeID, code, message string) error

	// UpsertParseResult and UpsertReviewResult are create-or-replace keyed by
	// resumeID, so duplicate pipeline invocations stay idempotent.
	// AppendReviewHistory is insert-only: every completed run is a distinct
	// history fact. RecordReview writes the history entry and the current
	// review together; the Postgres implementation does both in one
	// transaction.
	UpsertParseResult(ctx context.Context, parse ParseResult) error
	UpsertReviewResult(ctx context.Context, review ReviewRecord) error
	AppendReviewHistory(ctx context.Context, entry ReviewHistoryEntry) error
	RecordReview(ctx context.Context, entry ReviewHistoryEntry, review ReviewRecord) error

	GetParseResult(ctx context.Context, resumeID string) (ParseResult, error)
	GetReviewResult(ctx context.Context, resumeID string) (ReviewRecord, error)
	ListReviewHistory(ctx context.Context, resumeID string) ([]ReviewHistoryEntry, error)
}
