package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"resume-review-backend/internal/llm"
	"resume-review-backend/internal/resumes"
	"resume-review-backend/internal/shared/storage/object"
	"resume-review-backend/internal/shared/telemetry"
)

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>")
		body.WriteString(p)
		body.WriteString("</w:t></w:r></w:p>")
	}

	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// fakeObjects is an in-memory object store keyed by storage key.
// Setting openErr makes Open fail with that error regardless of key.
type fakeObjects struct {
	blobs   map[string][]byte
	openErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{blobs: map[string][]byte{}}
}

func (f *fakeObjects) Save(ctx context.Context, ownerID, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := ownerID + "/" + fileName
	f.blobs[key] = data
	return key, int64(len(data)), docxMime, nil
}

func (f *fakeObjects) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	data, ok := f.blobs[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	delete(f.blobs, key)
	return nil
}

func (f *fakeObjects) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

// fakeLLM returns a canned review or a fixed error.
type fakeLLM struct {
	review llm.Review
	err    error
	calls  int
}

func (f *fakeLLM) Review(ctx context.Context, in llm.ReviewInput) (llm.Review, error) {
	f.calls++
	if f.err != nil {
		return llm.Review{}, f.err
	}
	return f.review, nil
}

func validReview() llm.Review {
	return llm.Review{
		Score:           82,
		Strengths:       []string{"clear impact statements", "strong project depth", "good keyword coverage"},
		Weaknesses:      []string{"no summary", "dense formatting", "missing metrics"},
		MissingKeywords: []string{"kubernetes", "terraform", "grpc", "postgres", "ci/cd"},
		RewriteSuggestions: []llm.RewriteSuggestion{
			{Before: "worked on backend", After: "built the order API serving 2M requests/day", Why: "quantifies impact"},
			{Before: "helped with testing", After: "raised unit coverage from 40% to 85%", Why: "shows ownership"},
			{Before: "used databases", After: "modeled billing data in Postgres", Why: "names the technology"},
		},
		NextActions: []string{"add a summary", "quantify top three bullets", "list deployment tooling"},
		Model:       "gemini-1.5-flash",
	}
}

type env struct {
	store   *resumes.MemoryStore
	objects *fakeObjects
	model   *fakeLLM
	proc    *Processor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := resumes.NewMemoryStore()
	objects := newFakeObjects()
	model := &fakeLLM{review: validReview()}
	return &env{
		store:   store,
		objects: objects,
		model:   model,
		proc:    &Processor{Store: store, Objects: objects, LLM: model},
	}
}

func (e *env) seedResume(t *testing.T, data []byte) resumes.Resume {
	t.Helper()
	ctx := context.Background()

	key, size, mime, err := e.objects.Save(ctx, "owner-1", "resume.docx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("save blob: %v", err)
	}
	resume := resumes.Resume{
		ID:          "resume-1",
		OwnerID:     "owner-1",
		FileName:    "resume.docx",
		MimeType:    mime,
		SizeBytes:   size,
		StorageKey:  key,
		RoleTarget:  "Backend Engineer",
		TargetLevel: "Senior",
	}
	if err := e.store.Create(ctx, resume); err != nil {
		t.Fatalf("create resume: %v", err)
	}
	return resume
}

func TestRunHappyPath(t *testing.T) {
	e := newEnv(t)
	e.seedResume(t, buildDocx(t, "Jane Doe", "Experience", "Built the order API at Acme"))

	if err := e.proc.Run(context.Background(), "resume-1", "owner-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resume, err := e.store.GetByID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("get resume: %v", err)
	}
	if resume.Status != resumes.StatusReady {
		t.Fatalf("status = %s, want READY", resume.Status)
	}
	if resume.LastErrorCode != "" {
		t.Fatalf("unexpected error code %q", resume.LastErrorCode)
	}

	parse, err := e.store.GetParseResult(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("get parse: %v", err)
	}
	if !strings.Contains(parse.RawText, "Jane Doe") {
		t.Fatalf("raw text missing content: %q", parse.RawText)
	}
	if parse.RunID == "" {
		t.Fatal("parse run id not set")
	}

	review, err := e.store.GetReviewResult(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("get review: %v", err)
	}
	if review.Review.Score != 82 {
		t.Fatalf("score = %d, want 82", review.Review.Score)
	}
	if review.RunID != parse.RunID {
		t.Fatalf("review run %q != parse run %q", review.RunID, parse.RunID)
	}

	history, err := e.store.ListReviewHistory(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].RunID != review.RunID {
		t.Fatalf("history run %q != review run %q", history[0].RunID, review.RunID)
	}
}

func TestRunEmitsStatusTransitions(t *testing.T) {
	var logs bytes.Buffer
	prev := telemetry.SetOutput(&logs)
	defer telemetry.SetOutput(prev)

	e := newEnv(t)
	e.seedResume(t, buildDocx(t, "Jane Doe", "Experience", "Built the order API at Acme"))

	if err := e.proc.Run(context.Background(), "resume-1", "owner-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var transitions []string
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parse log line %q: %v", line, err)
		}
		if entry["msg"] != "pipeline.status" {
			continue
		}
		tr, _ := entry["status_transition"].(string)
		transitions = append(transitions, tr)
		if entry["run_id"] == "" {
			t.Fatalf("status event missing run_id: %v", entry)
		}
	}

	want := []string{"UPLOADED->PARSING", "PARSING->REVIEWING", "REVIEWING->READY"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestRunTwiceAppendsHistoryAndReplacesCurrent(t *testing.T) {
	e := newEnv(t)
	e.seedResume(t, buildDocx(t, "Jane Doe", "Experience", "Built the order API at Acme"))

	if err := e.proc.Run(context.Background(), "resume-1", "owner-1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := e.store.GetReviewResult(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("get first review: %v", err)
	}

	e.model.review.Score = 91
	if err := e.proc.Run(context.Background(), "resume-1", "owner-1"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	second, err := e.store.GetReviewResult(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("get second review: %v", err)
	}
	if second.Review.Score != 91 {
		t.Fatalf("score = %d, want 91", second.Review.Score)
	}
	if second.RunID == first.RunID {
		t.Fatal("second run reused first run id")
	}

	history, err := e.store.ListReviewHistory(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
}

func TestRunMissingResumeLeavesNoRow(t *testing.T) {
	e := newEnv(t)

	err := e.proc.Run(context.Background(), "ghost", "owner-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %T", err)
	}
	if runErr.Code != CodeResumeNotFound {
		t.Fatalf("code = %s, want RESUME_NOT_FOUND", runErr.Code)
	}
	if runErr.Retryable {
		t.Fatal("missing resume should not be retryable")
	}
}

func TestRunMissingBlobFails(t *testing.T) {
	e := newEnv(t)
	resume := e.seedResume(t, buildDocx(t, "Jane Doe"))
	if err := e.objects.Delete(context.Background(), resume.StorageKey); err != nil {
		t.Fatalf("delete blob: %v", err)
	}

	err := e.proc.Run(context.Background(), "resume-1", "owner-1")
	assertFailedWith(t, e, err, CodeStorageNotFound, false)
}

func TestRunStorageOutageIsRetryable(t *testing.T) {
	e := newEnv(t)
	e.seedResume(t, buildDocx(t, "Jane Doe"))
	e.objects.openErr = errors.New("dial tcp 10.0.0.5:9000: connect: connection refused")

	err := e.proc.Run(context.Background(), "resume-1", "owner-1")
	assertFailedWith(t, e, err, CodeStorageUnavailable, true)

	// The run never reached extraction, so no parse row was written.
	if _, err := e.store.GetParseResult(context.Background(), "resume-1"); !errors.Is(err, resumes.ErrNotFound) {
		t.Fatalf("no parse result should be recorded, got %v", err)
	}
}

func TestRunUnsupportedFormatFails(t *testing.T) {
	e := newEnv(t)
	resume := e.seedResume(t, []byte("plain text"))
	// Overwrite the row with an unsupported mime type and name.
	resume.MimeType = "text/plain"
	resume.FileName = "resume.txt"
	if err := e.store.Create(context.Background(), resume); err != nil {
		t.Fatalf("update resume: %v", err)
	}

	err := e.proc.Run(context.Background(), "resume-1", "owner-1")
	assertFailedWith(t, e, err, CodeUnsupportedFormat, false)
}

func TestRunEmptyExtractionFails(t *testing.T) {
	e := newEnv(t)
	e.seedResume(t, buildDocx(t))

	err := e.proc.Run(context.Background(), "resume-1", "owner-1")
	assertFailedWith(t, e, err, CodeEmptyExtraction, false)
}

func TestRunProviderUnavailableIsRetryable(t *testing.T) {
	e := newEnv(t)
	e.seedResume(t, buildDocx(t, "Jane Doe", "Experience", "Built things"))
	e.model.err = fmt.Errorf("generate content: %w", llm.ErrProviderUnavailable)

	err := e.proc.Run(context.Background(), "resume-1", "owner-1")
	assertFailedWith(t, e, err, CodeProviderUnavailable, true)

	// Parse survived the failed review step; a retry can reuse the row.
	if _, err := e.store.GetParseResult(context.Background(), "resume-1"); err != nil {
		t.Fatalf("parse result should exist: %v", err)
	}
}

func TestRunInvalidModelResponseFails(t *testing.T) {
	e := newEnv(t)
	e.seedResume(t, buildDocx(t, "Jane Doe", "Experience", "Built things"))
	e.model.err = fmt.Errorf("parse review: %w", llm.ErrInvalidResponse)

	err := e.proc.Run(context.Background(), "resume-1", "owner-1")
	assertFailedWith(t, e, err, CodeInvalidModelResponse, false)

	if _, err := e.store.GetReviewResult(context.Background(), "resume-1"); !errors.Is(err, resumes.ErrNotFound) {
		t.Fatalf("no review should be recorded, got %v", err)
	}
	history, err := e.store.ListReviewHistory(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history length = %d, want 0", len(history))
	}
}

func TestRunRecoversAfterFailure(t *testing.T) {
	e := newEnv(t)
	e.seedResume(t, buildDocx(t, "Jane Doe", "Experience", "Built things"))
	e.model.err = fmt.Errorf("generate content: %w", llm.ErrProviderUnavailable)

	if err := e.proc.Run(context.Background(), "resume-1", "owner-1"); err == nil {
		t.Fatal("expected first run to fail")
	}

	e.model.err = nil
	if err := e.proc.Run(context.Background(), "resume-1", "owner-1"); err != nil {
		t.Fatalf("retry run: %v", err)
	}

	resume, err := e.store.GetByID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("get resume: %v", err)
	}
	if resume.Status != resumes.StatusReady {
		t.Fatalf("status = %s, want READY", resume.Status)
	}
	if resume.LastErrorCode != "" {
		t.Fatalf("failure annotation not cleared: %q", resume.LastErrorCode)
	}
}

func assertFailedWith(t *testing.T, e *env, err error, code string, retryable bool) {
	t.Helper()

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}
	if runErr.Code != code {
		t.Fatalf("code = %s, want %s", runErr.Code, code)
	}
	if runErr.Retryable != retryable {
		t.Fatalf("retryable = %v, want %v", runErr.Retryable, retryable)
	}
	if IsRetryable(err) != retryable {
		t.Fatalf("IsRetryable = %v, want %v", IsRetryable(err), retryable)
	}

	resume, getErr := e.store.GetByID(context.Background(), "resume-1")
	if getErr != nil {
		t.Fatalf("get resume: %v", getErr)
	}
	if resume.Status != resumes.StatusFailed {
		t.Fatalf("status = %s, want FAILED", resume.Status)
	}
	if resume.LastErrorCode != code {
		t.Fatalf("last error code = %q, want %q", resume.LastErrorCode, code)
	}
	if resume.LastErrorMessage == "" {
		t.Fatal("last error message not set")
	}
}
