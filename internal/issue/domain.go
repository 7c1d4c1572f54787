// Package issue tracks problems reported against projects, with status
// history and file attachments.
package issue

import (
	"time"

	"github.com/crewdesk/crewdesk/internal/attach"
)

// Issue statuses move forward through this set; the log keeps the history.
const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusResolved   = "RESOLVED"
	StatusClosed     = "CLOSED"
)

// Issue is a reported problem on a project.
type Issue struct {
	ID          int64               `json:"id"`
	ProjectID   int64               `json:"projectId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	CreatedBy   int64               `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Files       []attach.Attachment `json:"files,omitempty"`
	Logs        []Log               `json:"logs,omitempty"`
}

// Log is one entry in an issue's status history.
type Log struct {
	ID        int64     `json:"id"`
	IssueID   int64     `json:"-"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
