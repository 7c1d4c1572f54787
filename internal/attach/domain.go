// Package attach owns the file-attachment lifecycle: disk writes with
// compensating cleanup, duplicate detection, and cascading deletion of an
// owner's files.
package attach

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
)

// OwnerType identifies the kind of entity an attachment belongs to.
type OwnerType string

// Owner types with their upload directories.
const (
	OwnerProject   OwnerType = "project"
	OwnerIssue     OwnerType = "issue"
	OwnerOrder     OwnerType = "order"
	OwnerSignature OwnerType = "signature"
)

// Dir returns the relative POSIX upload directory for the owner type.
func (t OwnerType) Dir() string {
	switch t {
	case OwnerProject:
		return path.Join("uploads", "projects")
	case OwnerIssue:
		return path.Join("uploads", "issues")
	case OwnerOrder:
		return path.Join("uploads", "orders")
	case OwnerSignature:
		return path.Join("uploads", "signatures")
	}
	return "uploads"
}

// Owner references the entity a batch of files belongs to.
type Owner struct {
	Type OwnerType
	ID   int64
}

// Attachment is a database record pointing at a file on disk, addressed by a
// relative POSIX path.
type Attachment struct {
	ID        int64     `json:"id"`
	OwnerType OwnerType `json:"-"`
	OwnerID   int64     `json:"-"`
	FilePath  string    `json:"filePath"`
	CreatedAt time.Time `json:"createdAt"`
}

// Skipped reports a filename collision within a batch or against files
// already attached to the owner. Non-fatal.
type Skipped struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// Result is the outcome of an upload batch.
type Result struct {
	Accepted []Attachment `json:"uploadedFiles"`
	Skipped  []Skipped    `json:"skippedFiles"`
}

// Failure taxonomy. Owner validation happens before any write; disk and
// record failures trigger best-effort compensating cleanup before
// propagating.
var (
	ErrOwnerNotFound = fmt.Errorf("attach: owner not found: %w", httpx.ErrNotFound)
	ErrDiskWrite     = errors.New("attach: disk write failed")
	ErrRecordPersist = errors.New("attach: record persist failed")
	ErrFileNotFound  = fmt.Errorf("attach: file not found: %w", httpx.ErrNotFound)
)
