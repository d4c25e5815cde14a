package workerproc

import (
	"context"
	"errors"
	"testing"

	"resume-review-backend/internal/queue"
)

type stubProcessor struct {
	err      error
	resumeID string
	ownerID  string
}

func (s *stubProcessor) Run(ctx context.Context, resumeID, ownerID string) error {
	s.resumeID = resumeID
	s.ownerID = ownerID
	return s.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	payload, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	return string(payload)
}

func TestParseMessageEmptyBody(t *testing.T) {
	_, _, err := ParseMessage("   ")
	var emptyErr ErrEmptyBody
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestParseMessageDecodeFailure(t *testing.T) {
	_, meta, err := ParseMessage("{not-json")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen == 0 || meta.BodySHA == "" {
		t.Fatalf("expected body meta, got %+v", meta)
	}
}

func TestParseMessageMissingResumeID(t *testing.T) {
	body := encode(t, queue.Message{Name: queue.EventResumeUploaded, RequestID: "req-1"})

	_, _, err := ParseMessage(body)
	var missingErr ErrMissingResumeID
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected ErrMissingResumeID, got %v", err)
	}
	if missingErr.RequestID != "req-1" {
		t.Fatalf("request id = %q, want req-1", missingErr.RequestID)
	}
}

func TestParseMessageValid(t *testing.T) {
	body := encode(t, queue.Message{
		Name:      queue.EventResumeUploaded,
		ResumeID:  "resume-1",
		OwnerID:   "owner-1",
		RequestID: "req-1",
		Version:   queue.MessageVersion,
	})

	msg, _, err := ParseMessage(body)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.ResumeID != "resume-1" || msg.OwnerID != "owner-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestHandleMessageRunsProcessor(t *testing.T) {
	proc := &stubProcessor{}
	body := encode(t, queue.Message{Name: queue.EventResumeUploaded, ResumeID: "resume-1", OwnerID: "owner-1"})

	if err := HandleMessage(context.Background(), proc, body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if proc.resumeID != "resume-1" || proc.ownerID != "owner-1" {
		t.Fatalf("processor got resume=%q owner=%q", proc.resumeID, proc.ownerID)
	}
}

func TestHandleMessageWrapsProcessorError(t *testing.T) {
	cause := errors.New("pipeline exploded")
	proc := &stubProcessor{err: cause}
	body := encode(t, queue.Message{Name: queue.EventResumeUploaded, ResumeID: "resume-1", RequestID: "req-9"})

	err := HandleMessage(context.Background(), proc, body)
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if procErr.ResumeID != "resume-1" || procErr.RequestID != "req-9" {
		t.Fatalf("unexpected ErrProcess %+v", procErr)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
}

func TestHandleMessageReusesParsedContext(t *testing.T) {
	proc := &stubProcessor{}
	msg := queue.Message{Name: queue.EventResumeUploaded, ResumeID: "resume-7", OwnerID: "owner-7"}
	ctx := WithParsedMessage(context.Background(), msg)

	// Body deliberately invalid: the parsed message in context wins.
	if err := HandleMessage(ctx, proc, "{ignored"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if proc.resumeID != "resume-7" {
		t.Fatalf("processor got resume=%q, want resume-7", proc.resumeID)
	}
}
