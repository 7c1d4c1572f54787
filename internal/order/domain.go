// Package order manages work orders: the jobs crews execute on site,
// including their paperwork attachments and customer sign-off signatures.
package order

import (
	"time"

	"github.com/crewdesk/crewdesk/internal/attach"
)

// Order statuses.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Order is a unit of billable work, optionally linked to a project.
type Order struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	ProjectID   *int64              `json:"projectId,omitempty"`
	Status      string              `json:"status"`
	Archived    bool                `json:"archived"`
	CreatedBy   int64               `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Files       []attach.Attachment `json:"files,omitempty"`
	Signatures  []attach.Attachment `json:"signatures,omitempty"`
}

// Stats summarizes orders for the dashboard.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	Archived   int `json:"archived"`
}
