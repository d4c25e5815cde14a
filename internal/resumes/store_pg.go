package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-review-backend/internal/llm"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

// Create inserts a new resume row.
func (s *PGStore) Create(ctx context.Context, resume Resume) error {
	const query = `
INSERT INTO resumes (id, owner_id, file_name, mime_type, size_bytes, storage_key, role_target, target_level, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	status := resume.Status
	if status == "" {
		status = StatusUploaded
	}
	createdAt := resume.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, query,
		resume.ID,
		resume.OwnerID,
		resume.FileName,
		resume.MimeType,
		resume.SizeBytes,
		resume.StorageKey,
		nullable(resume.RoleTarget),
		nullable(resume.TargetLevel),
		status,
		createdAt,
	)
	return err
}

const resumeColumns = `id, owner_id, file_name, mime_type, size_bytes, storage_key, role_target, target_level, status, last_error_code, last_error_message, created_at, updated_at`

// GetByID returns a resume by its ID regardless of owner. Used by the
// pipeline, which received the owner in the trigger payload.
func (s *PGStore) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`
	return s.scanResume(s.DB.QueryRowContext(ctx, query, resumeID))
}

// GetByIDForOwner returns a resume only if it belongs to the owner.
func (s *PGStore) GetByIDForOwner(ctx context.Context, resumeID, ownerID string) (Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1 AND owner_id = $2`
	return s.scanResume(s.DB.QueryRowContext(ctx, query, resumeID, ownerID))
}

// ListByOwner returns an owner's resumes newest-first.
func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resume{}
	for rows.Next() {
		resume, err := s.scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resume)
	}
	return out, rows.Err()
}

// UpdateTarget updates the role context fields, scoped to the owner.
func (s *PGStore) UpdateTarget(ctx context.Context, resumeID, ownerID, roleTarget, targetLevel string) error {
	const query = `
UPDATE resumes SET role_target = $3, target_level = $4, updated_at = $5
WHERE id = $1 AND owner_id = $2`
	res, err := s.DB.ExecContext(ctx, query, resumeID, ownerID, nullable(roleTarget), nullable(targetLevel), time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes the resume row; child rows cascade.
func (s *PGStore) Delete(ctx context.Context, resumeID, ownerID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1 AND owner_id = $2`, resumeID, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateStatus writes a non-failed status and clears the failure annotation.
func (s *PGStore) UpdateStatus(ctx context.Context, resumeID, status string) error {
	const query = `
UPDATE resumes SET status = $2, last_error_code = NULL, last_error_message = NULL, updated_at = $3
WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, resumeID, status, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkFailed writes FAILED together with the classified failure.
func (s *PGStore) MarkFailed(ctx context.Context, resumeID, code, message string) error {
	const query = `
UPDATE resumes SET status = $2, last_error_code = $3, last_error_message = $4, updated_at = $5
WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, resumeID, StatusFailed, code, message, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpsertParseResult creates or replaces the single parse row for a resume.
func (s *PGStore) UpsertParseResult(ctx context.Context, parse ParseResult) error {
	sections, err := json.Marshal(parse.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	const query = `
INSERT INTO resume_parses (resume_id, run_id, raw_text, sections, parser_version, schema_version, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (resume_id) DO UPDATE SET
    run_id = EXCLUDED.run_id,
    raw_text = EXCLUDED.raw_text,
    sections = EXCLUDED.sections,
    parser_version = EXCLUDED.parser_version,
    schema_version = EXCLUDED.schema_version,
    updated_at = EXCLUDED.updated_at`

	schemaVersion := parse.SchemaVersion
	if schemaVersion == 0 {
		schemaVersion = ParseSchemaVersion
	}
	_, err = s.DB.ExecContext(ctx, query,
		parse.ResumeID, parse.RunID, parse.RawText, sections, parse.ParserVersion, schemaVersion, time.Now().UTC())
	return err
}

// UpsertReviewResult creates or replaces the single current review.
func (s *PGStore) UpsertReviewResult(ctx context.Context, review ReviewRecord) error {
	return upsertReviewResult(ctx, s.DB, review)
}

func upsertReviewResult(ctx context.Context, db execer, review ReviewRecord) error {
	cols, err := reviewJSONColumns(review.Review)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO resume_reviews (resume_id, run_id, score, strengths, weaknesses, missing_keywords, rewrite_suggestions, next_actions, model, schema_version, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (resume_id) DO UPDATE SET
    run_id = EXCLUDED.run_id,
    score = EXCLUDED.score,
    strengths = EXCLUDED.strengths,
    weaknesses = EXCLUDED.weaknesses,
    missing_keywords = EXCLUDED.missing_keywords,
    rewrite_suggestions = EXCLUDED.rewrite_suggestions,
    next_actions = EXCLUDED.next_actions,
    model = EXCLUDED.model,
    schema_version = EXCLUDED.schema_version,
    updated_at = EXCLUDED.updated_at`

	schemaVersion := review.SchemaVersion
	if schemaVersion == 0 {
		schemaVersion = ReviewSchemaVersion
	}
	_, err = db.ExecContext(ctx, query,
		review.ResumeID, review.RunID, review.Review.Score,
		cols.strengths, cols.weaknesses, cols.missingKeywords, cols.suggestions, cols.nextActions,
		review.Review.Model, schemaVersion, time.Now().UTC())
	return err
}

// AppendReviewHistory inserts one immutable history row.
func (s *PGStore) AppendReviewHistory(ctx context.Context, entry ReviewHistoryEntry) error {
	return appendReviewHistory(ctx, s.DB, entry)
}

func appendReviewHistory(ctx context.Context, db execer, entry ReviewHistoryEntry) error {
	cols, err := reviewJSONColumns(entry.Review)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO resume_review_history (id, resume_id, run_id, score, strengths, weaknesses, missing_keywords, rewrite_suggestions, next_actions, model, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = db.ExecContext(ctx, query,
		entry.ID, entry.ResumeID, entry.RunID, entry.Review.Score,
		cols.strengths, cols.weaknesses, cols.missingKeywords, cols.suggestions, cols.nextActions,
		entry.Review.Model, createdAt)
	return err
}

// RecordReview writes one history entry and replaces the current review in a
// single transaction, so readers never see a run's review without its history
// row.
func (s *PGStore) RecordReview(ctx context.Context, entry ReviewHistoryEntry, review ReviewRecord) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := appendReviewHistory(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := upsertReviewResult(ctx, tx, review); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetParseResult returns the parse row for a resume.
func (s *PGStore) GetParseResult(ctx context.Context, resumeID string) (ParseResult, error) {
	const query = `
SELECT resume_id, run_id, raw_text, sections, parser_version, schema_version, updated_at
FROM resume_parses WHERE resume_id = $1`

	var parse ParseResult
	var sections []byte
	err := s.DB.QueryRowContext(ctx, query, resumeID).Scan(
		&parse.ResumeID, &parse.RunID, &parse.RawText, &sections, &parse.ParserVersion, &parse.SchemaVersion, &parse.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ParseResult{}, ErrNotFound
		}
		return ParseResult{}, err
	}
	if err := json.Unmarshal(sections, &parse.Sections); err != nil {
		return ParseResult{}, fmt.Errorf("unmarshal sections: %w", err)
	}
	return parse, nil
}

// GetReviewResult returns the current review row for a resume.
func (s *PGStore) GetReviewResult(ctx context.Context, resumeID string) (ReviewRecord, error) {
	const query = `
SELECT resume_id, run_id, score, strengths, weaknesses, missing_keywords, rewrite_suggestions, next_actions, model, schema_version, updated_at
FROM resume_reviews WHERE resume_id = $1`

	var record ReviewRecord
	var strengths, weaknesses, keywords, suggestions, actions []byte
	err := s.DB.QueryRowContext(ctx, query, resumeID).Scan(
		&record.ResumeID, &record.RunID, &record.Review.Score,
		&strengths, &weaknesses, &keywords, &suggestions, &actions,
		&record.Review.Model, &record.SchemaVersion, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReviewRecord{}, ErrNotFound
		}
		return ReviewRecord{}, err
	}
	if err := unmarshalReviewColumns(&record.Review, strengths, weaknesses, keywords, suggestions, actions); err != nil {
		return ReviewRecord{}, err
	}
	return record, nil
}

// ListReviewHistory returns history entries, most recent first.
func (s *PGStore) ListReviewHistory(ctx context.Context, resumeID string) ([]ReviewHistoryEntry, error) {
	const query = `
SELECT id, resume_id, run_id, score, strengths, weaknesses, missing_keywords, rewrite_suggestions, next_actions, model, created_at
FROM resume_review_history WHERE resume_id = $1 ORDER BY created_at DESC`

	rows, err := s.DB.QueryContext(ctx, query, resumeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ReviewHistoryEntry{}
	for rows.Next() {
		var entry ReviewHistoryEntry
		var strengths, weaknesses, keywords, suggestions, actions []byte
		if err := rows.Scan(
			&entry.ID, &entry.ResumeID, &entry.RunID, &entry.Review.Score,
			&strengths, &weaknesses, &keywords, &suggestions, &actions,
			&entry.Review.Model, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalReviewColumns(&entry.Review, strengths, weaknesses, keywords, suggestions, actions); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PGStore) scanResume(row scanner) (Resume, error) {
	var resume Resume
	var roleTarget, targetLevel, errCode, errMsg sql.NullString
	err := row.Scan(
		&resume.ID, &resume.OwnerID, &resume.FileName, &resume.MimeType, &resume.SizeBytes, &resume.StorageKey,
		&roleTarget, &targetLevel, &resume.Status, &errCode, &errMsg, &resume.CreatedAt, &resume.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	resume.RoleTarget = roleTarget.String
	resume.TargetLevel = targetLevel.String
	resume.LastErrorCode = errCode.String
	resume.LastErrorMessage = errMsg.String
	return resume, nil
}

type reviewColumns struct {
	strengths, weaknesses, missingKeywords, suggestions, nextActions []byte
}

func reviewJSONColumns(review llm.Review) (reviewColumns, error) {
	var cols reviewColumns
	var err error
	if cols.strengths, err = json.Marshal(emptyIfNil(review.Strengths)); err != nil {
		return cols, err
	}
	if cols.weaknesses, err = json.Marshal(emptyIfNil(review.Weaknesses)); err != nil {
		return cols, err
	}
	if cols.missingKeywords, err = json.Marshal(emptyIfNil(review.MissingKeywords)); err != nil {
		return cols, err
	}
	suggestions := review.RewriteSuggestions
	if suggestions == nil {
		suggestions = []llm.RewriteSuggestion{}
	}
	if cols.suggestions, err = json.Marshal(suggestions); err != nil {
		return cols, err
	}
	if cols.nextActions, err = json.Marshal(emptyIfNil(review.NextActions)); err != nil {
		return cols, err
	}
	return cols, nil
}

func unmarshalReviewColumns(review *llm.Review, strengths, weaknesses, keywords, suggestions, actions []byte) error {
	if err := json.Unmarshal(strengths, &review.Strengths); err != nil {
		return fmt.Errorf("unmarshal strengths: %w", err)
	}
	if err := json.Unmarshal(weaknesses, &review.Weaknesses); err != nil {
		return fmt.Errorf("unmarshal weaknesses: %w", err)
	}
	if err := json.Unmarshal(keywords, &review.MissingKeywords); err != nil {
		return fmt.Errorf("unmarshal missing keywords: %w", err)
	}
	if err := json.Unmarshal(suggestions, &review.RewriteSuggestions); err != nil {
		return fmt.Errorf("unmarshal rewrite suggestions: %w", err)
	}
	if err := json.Unmarshal(actions, &review.NextActions); err != nil {
		return fmt.Errorf("unmarshal next actions: %w", err)
	}
	return nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PGStore)(nil)
