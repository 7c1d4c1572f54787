package project

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/internal/issue"
)

// Renderer converts a composed HTML document into a PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// IssueLister supplies the issue summaries included in a project report.
type IssueLister interface {
	ListByProject(ctx context.Context, projectID int64) ([]issue.Issue, error)
}

// Reporter composes the printable project summary and hands it to the PDF
// renderer.
type Reporter struct {
	service  *Service
	issues   IssueLister
	renderer Renderer
}

// NewReporter constructs a project reporter.
func NewReporter(service *Service, issues IssueLister, renderer Renderer) *Reporter {
	return &Reporter{service: service, issues: issues, renderer: renderer}
}

var reportTemplate = template.Must(template.New("project-report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Project Report: {{.Project.Name}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: 0.2em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #bbb; padding: 6px 10px; text-align: left; font-size: 0.9em; }
th { background: #eee; }
.meta { color: #666; font-size: 0.85em; }
</style>
</head>
<body>
<h1>{{.Project.Name}}</h1>
<p class="meta">Company: {{.Project.CompanyName}} · Status: {{.Project.Status}} · Generated {{.GeneratedAt}}</p>
<p>{{.Project.Description}}</p>

<h2>Crew</h2>
<table>
<tr><th>Name</th><th>Email</th></tr>
{{range .Project.AssignedUsers}}<tr><td>{{.DisplayName}}</td><td>{{.Email}}</td></tr>
{{else}}<tr><td colspan="2">No crew assigned</td></tr>
{{end}}</table>

<h2>Issues ({{len .Issues}})</h2>
<table>
<tr><th>Title</th><th>Status</th><th>Opened</th></tr>
{{range .Issues}}<tr><td>{{.Title}}</td><td>{{.Status}}</td><td>{{.CreatedAt.Format "2006-01-02"}}</td></tr>
{{else}}<tr><td colspan="3">No issues</td></tr>
{{end}}</table>

<h2>Attachments ({{len .Project.Files}})</h2>
<table>
<tr><th>File</th><th>Uploaded</th></tr>
{{range .Project.Files}}<tr><td>{{.FilePath}}</td><td>{{.CreatedAt.Format "2006-01-02"}}</td></tr>
{{else}}<tr><td colspan="2">No attachments</td></tr>
{{end}}</table>
</body>
</html>`))

// Render produces the PDF report for a project.
func (r *Reporter) Render(ctx context.Context, projectID int64) ([]byte, error) {
	p, err := r.service.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	issues, err := r.issues.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	data := struct {
		Project     Project
		Issues      []issue.Issue
		GeneratedAt string
	}{
		Project:     p,
		Issues:      issues,
		GeneratedAt: time.Now().Format(time.RFC1123),
	}
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("compose project report: %w", err)
	}
	return r.renderer.RenderHTML(ctx, buf.String())
}
