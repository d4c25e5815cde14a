package resumes

import "errors"

var (
	// ErrNotFound reports a resume (or child row) that does not exist or is
	// not visible to the requesting owner.
	ErrNotFound = errors.New("resume not found")
)
