// Package project manages construction projects: their lifecycle, crew
// assignments, activity log, attachments, and reporting.
package project

import (
	"time"

	"github.com/crewdesk/crewdesk/internal/attach"
)

// Project statuses.
const (
	StatusPlanned   = "PLANNED"
	StatusActive    = "ACTIVE"
	StatusOnHold    = "ON_HOLD"
	StatusCompleted = "COMPLETED"
)

// Project is a long-running job a company contracts, grouping issues,
// orders, files, and assigned crew members.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CompanyID   int64      `json:"companyId"`
	CompanyName string     `json:"company,omitempty"`
	Status      string     `json:"status"`
	Archived    bool       `json:"archived"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedBy   int64      `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Files         []attach.Attachment `json:"files,omitempty"`
	AssignedUsers []Member            `json:"assignedUsers,omitempty"`
}

// Ref is the minimal projection used by dropdowns.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Member is a crew member assigned to a project.
type Member struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
}

// Activity is one entry in a project's activity log.
type Activity struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"-"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	ActorID   int64     `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats summarizes projects for the dashboard.
type Stats struct {
	Total     int `json:"total"`
	Planned   int `json:"planned"`
	Active    int `json:"active"`
	OnHold    int `json:"onHold"`
	Completed int `json:"completed"`
	Archived  int `json:"archived"`
}
