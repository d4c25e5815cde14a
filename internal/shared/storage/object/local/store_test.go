package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"resume-review-backend/internal/shared/storage/object"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, _, err := store.Save(ctx, "owner-1", "resume.pdf", bytes.NewReader([]byte("hello resume")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("hello resume")) {
		t.Fatalf("size = %d, want %d", size, len("hello resume"))
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello resume" {
		t.Fatalf("round trip mismatch: %q", data)
	}
}

func TestOpenMissingKeyIsNotFound(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Open(context.Background(), "nope/missing.pdf")
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected object.ErrNotFound, got %v", err)
	}
}

func TestDeleteThenOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, _, _, err := store.Save(ctx, "owner-1", "resume.pdf", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	// Deleting twice is fine.
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestSignURLMissingKey(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.SignURL(context.Background(), "owner/missing.pdf", 0)
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../outside"); err == nil || !strings.Contains(err.Error(), "invalid storage key") {
		t.Fatalf("expected invalid storage key error, got %v", err)
	}
}
