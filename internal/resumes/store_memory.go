package resumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for local development and tests. It
// mirrors PGStore semantics, including cascade delete of child rows.
type MemoryStore struct {
	mu      sync.Mutex
	resumes map[string]Resume
	parses  map[string]ParseResult
	reviews map[string]ReviewRecord
	history map[string][]ReviewHistoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resumes: map[string]Resume{},
		parses:  map[string]ParseResult{},
		reviews: map[string]ReviewRecord{},
		history: map[string][]ReviewHistoryEntry{},
	}
}

func (s *MemoryStore) Create(ctx context.Context, resume Resume) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if resume.Status == "" {
		resume.Status = StatusUploaded
	}
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = time.Now().UTC()
	}
	resume.UpdatedAt = resume.CreatedAt
	s.resumes[resume.ID] = resume
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resume, ok := s.resumes[resumeID]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return resume, nil
}

func (s *MemoryStore) GetByIDForOwner(ctx context.Context, resumeID, ownerID string) (Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resume, ok := s.resumes[resumeID]
	if !ok || resume.OwnerID != ownerID {
		return Resume{}, ErrNotFound
	}
	return resume, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Resume{}
	for _, resume := range s.resumes {
		if resume.OwnerID == ownerID {
			out = append(out, resume)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateTarget(ctx context.Context, resumeID, ownerID, roleTarget, targetLevel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resume, ok := s.resumes[resumeID]
	if !ok || resume.OwnerID != ownerID {
		return ErrNotFound
	}
	resume.RoleTarget = roleTarget
	resume.TargetLevel = targetLevel
	resume.UpdatedAt = time.Now().UTC()
	s.resumes[resumeID] = resume
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, resumeID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resume, ok := s.resumes[resumeID]
	if !ok || resume.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.resumes, resumeID)
	delete(s.parses, resumeID)
	delete(s.reviews, resumeID)
	delete(s.history, resumeID)
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, resumeID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resume, ok := s.resumes[resumeID]
	if !ok {
		return ErrNotFound
	}
	resume.Status = status
	resume.LastErrorCode = ""
	resume.LastErrorMessage = ""
	resume.UpdatedAt = time.Now().UTC()
	s.resumes[resumeID] = resume
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, resumeID, code, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resume, ok := s.resumes[resumeID]
	if !ok {
		return ErrNotFound
	}
	resume.Status = StatusFailed
	resume.LastErrorCode = code
	resume.LastErrorMessage = message
	resume.UpdatedAt = time.Now().UTC()
	s.resumes[resumeID] = resume
	return nil
}

func (s *MemoryStore) UpsertParseResult(ctx context.Context, parse ParseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parse.SchemaVersion == 0 {
		parse.SchemaVersion = ParseSchemaVersion
	}
	parse.UpdatedAt = time.Now().UTC()
	s.parses[parse.ResumeID] = parse
	return nil
}

func (s *MemoryStore) UpsertReviewResult(ctx context.Context, review ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if review.SchemaVersion == 0 {
		review.SchemaVersion = ReviewSchemaVersion
	}
	review.UpdatedAt = time.Now().UTC()
	s.reviews[review.ResumeID] = review
	return nil
}

func (s *MemoryStore) AppendReviewHistory(ctx context.Context, entry ReviewHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.history[entry.ResumeID] = append(s.history[entry.ResumeID], entry)
	return nil
}

// RecordReview mirrors the Postgres transactional write: under one lock it
// appends the history entry and replaces the current review.
func (s *MemoryStore) RecordReview(ctx context.Context, entry ReviewHistoryEntry, review ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.history[entry.ResumeID] = append(s.history[entry.ResumeID], entry)

	if review.SchemaVersion == 0 {
		review.SchemaVersion = ReviewSchemaVersion
	}
	review.UpdatedAt = time.Now().UTC()
	s.reviews[review.ResumeID] = review
	return nil
}

func (s *MemoryStore) GetParseResult(ctx context.Context, resumeID string) (ParseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parse, ok := s.parses[resumeID]
	if !ok {
		return ParseResult{}, ErrNotFound
	}
	return parse, nil
}

func (s *MemoryStore) GetReviewResult(ctx context.Context, resumeID string) (ReviewRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	review, ok := s.reviews[resumeID]
	if !ok {
		return ReviewRecord{}, ErrNotFound
	}
	return review, nil
}

func (s *MemoryStore) ListReviewHistory(ctx context.Context, resumeID string) ([]ReviewHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history[resumeID]
	out := make([]ReviewHistoryEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
