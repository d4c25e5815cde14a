package pipeline

import (
	"errors"
	"strings"

	"resume-review-backend/internal/extract"
	"resume-review-backend/internal/llm"
	"resume-review-backend/internal/resumes"
	"resume-review-backend/internal/shared/storage/object"
)

// Failure codes recorded on the resume row when a run ends in FAILED.
const (
	CodeResumeNotFound       = "RESUME_NOT_FOUND"
	CodeStorageUnavailable   = "STORAGE_UNAVAILABLE"
	CodeStorageNotFound      = "STORAGE_NOT_FOUND"
	CodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
	CodeEmptyExtraction      = "EMPTY_EXTRACTION"
	CodeProviderUnavailable  = "PROVIDER_UNAVAILABLE"
	CodeInvalidModelResponse = "INVALID_MODEL_RESPONSE"
	CodeRecordStore          = "RECORD_STORE"
	CodeInternal             = "INTERNAL"
)

// classifyFailure maps a run error to a failure code and whether a redelivery
// could succeed. Sentinel errors win over message sniffing.
func classifyFailure(err error) (string, bool) {
	switch {
	case err == nil:
		return CodeInternal, false
	case errors.Is(err, resumes.ErrNotFound):
		return CodeResumeNotFound, false
	case errors.Is(err, object.ErrNotFound):
		return CodeStorageNotFound, false
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return CodeUnsupportedFormat, false
	case errors.Is(err, extract.ErrEmptyExtraction):
		return CodeEmptyExtraction, false
	case errors.Is(err, llm.ErrProviderUnavailable):
		return CodeProviderUnavailable, true
	case errors.Is(err, llm.ErrInvalidResponse):
		return CodeInvalidModelResponse, false
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "open stored file") || strings.Contains(msg, "read stored file") {
		return CodeStorageUnavailable, true
	}
	if strings.Contains(msg, "record parse") || strings.Contains(msg, "record review") || strings.Contains(msg, "set status") {
		return CodeRecordStore, true
	}
	return CodeInternal, false
}

// sanitizeError flattens an error message for storage on the resume row.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

// RunError is the terminal error of one pipeline run.
type RunError struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *RunError) Error() string {
	return e.Code + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error { return e.Err }

// IsRetryable reports whether a redelivered trigger could succeed. Errors
// that are not RunErrors are treated as retryable so transient faults are
// not dropped.
func IsRetryable(err error) bool {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Retryable
	}
	return err != nil
}
