package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume-review-backend/internal/llm"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient("test-key", "gemini-test")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.baseURL = baseURL
	return c
}

func geminiBody(text string) string {
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

const validReview = `{
	"score": 78,
	"strengths": ["s1", "s2", "s3"],
	"weaknesses": ["w1", "w2", "w3"],
	"missingKeywords": ["k1", "k2", "k3", "k4", "k5"],
	"rewriteSuggestions": [
		{"before": "b1", "after": "a1", "why": "y1"},
		{"before": "b2", "after": "a2", "why": "y2"},
		{"before": "b3", "after": "a3", "why": "y3"}
	],
	"nextActions": ["n1", "n2", "n3"]
}`

func TestReviewSuccess(t *testing.T) {
	var gotPath string
	var gotKeyHeader string
	var gotQuery string
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKeyHeader = r.Header.Get("x-goog-api-key")
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(geminiBody(validReview)))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	review, err := client.Review(context.Background(), llm.ReviewInput{
		RoleTarget: "Backend Engineer",
		RawText:    "resume text",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Score != 78 {
		t.Fatalf("score = %d, want 78", review.Score)
	}
	if review.Model != "gemini-test" {
		t.Fatalf("model = %q", review.Model)
	}
	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKeyHeader != "test-key" {
		t.Fatalf("x-goog-api-key = %q", gotKeyHeader)
	}
	if strings.Contains(gotQuery, "test-key") {
		t.Fatalf("api key leaked into URL query: %q", gotQuery)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected request shape: %#v", gotReq)
	}
	prompt := gotReq.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Target role: Backend Engineer") {
		t.Fatalf("prompt missing role target:\n%s", prompt)
	}
	if gotReq.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("responseMimeType = %q", gotReq.GenerationConfig.ResponseMIMEType)
	}
}

func TestReviewHTTPErrorIsProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Review(context.Background(), llm.ReviewInput{RawText: "x"})
	if !errors.Is(err, llm.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestReviewTimeoutIsProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.httpClient.Timeout = 20 * time.Millisecond

	_, err := client.Review(context.Background(), llm.ReviewInput{RawText: "x"})
	if !errors.Is(err, llm.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestReviewTransportErrorOmitsAPIKey(t *testing.T) {
	c, err := NewClient("SECRET-KEY-123", "gemini-test")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	// Unroutable address: transport errors quote the request URL, and the
	// credential must not be part of it.
	c.baseURL = "http://127.0.0.1:1"

	_, err = c.Review(context.Background(), llm.ReviewInput{RawText: "x"})
	if !errors.Is(err, llm.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Fatalf("error message contains api key: %v", err)
	}
}

func TestReviewNonJSONContentIsInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiBody("sorry, I cannot help with that")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Review(context.Background(), llm.ReviewInput{RawText: "x"})
	if !errors.Is(err, llm.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestReviewEmptyCandidatesIsInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Review(context.Background(), llm.ReviewInput{RawText: "x"})
	if !errors.Is(err, llm.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "model"); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewClient("key", " "); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt := BuildPrompt(llm.ReviewInput{RawText: "text"})
	if !strings.Contains(prompt, "Target role: Software Engineer") {
		t.Fatalf("missing default role:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Target level: Not specified") {
		t.Fatalf("missing default level:\n%s", prompt)
	}
	if !strings.Contains(prompt, "exactly 3 rewriteSuggestions") {
		t.Fatalf("missing cardinality constraint:\n%s", prompt)
	}
}
