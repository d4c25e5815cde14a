package resumes

import (
	"time"

	"resume-review-backend/internal/extract"
	"resume-review-backend/internal/llm"
)

// Resume status values. Only the pipeline mutates status after upload.
const (
	StatusUploaded  = "UPLOADED"
	StatusParsing   = "PARSING"
	StatusReviewing = "REVIEWING"
	StatusReady     = "READY"
	StatusFailed    = "FAILED"
)

// Schema versions for the typed child rows. Bump when the persisted shape
// changes so old rows remain identifiable.
const (
	ParseSchemaVersion  = 1
	ReviewSchemaVersion = 1
)

// Resume is one uploaded file version belonging to an owner.
type Resume struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	FileName         string    `json:"fileName"`
	MimeType         string    `json:"mimeType"`
	SizeBytes        int64     `json:"sizeBytes"`
	StorageKey       string    `json:"-"`
	RoleTarget       string    `json:"roleTarget,omitempty"`
	TargetLevel      string    `json:"targetLevel,omitempty"`
	Status           string    `json:"status"`
	LastErrorCode    string    `json:"lastErrorCode,omitempty"`
	LastErrorMessage string    `json:"lastErrorMessage,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ParseResult is the extraction output for a resume. At most one per resume;
// re-runs overwrite it.
type ParseResult struct {
	ResumeID      string           `json:"resumeId"`
	RunID         string           `json:"runId"`
	RawText       string           `json:"rawText"`
	Sections      extract.Sections `json:"sections"`
	ParserVersion string           `json:"parserVersion"`
	SchemaVersion int              `json:"schemaVersion"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ReviewRecord is the current review for a resume, replaced on every
// successful run.
type ReviewRecord struct {
	ResumeID      string     `json:"resumeId"`
	RunID         string     `json:"runId"`
	Review        llm.Review `json:"review"`
	SchemaVersion int        `json:"schemaVersion"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ReviewHistoryEntry is the append-only record of one completed review run.
// Entries are never mutated or deleted individually.
type ReviewHistoryEntry struct {
	ID        string     `json:"id"`
	ResumeID  string     `json:"resumeId"`
	RunID     string     `json:"runId"`
	Review    llm.Review `json:"review"`
	CreatedAt time.Time  `json:"createdAt"`
}
