package project_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/internal/attach"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/project"
	"github.com/crewdesk/crewdesk/internal/shared"
)

type fakeRepo struct {
	companies map[int64]bool
	projects  map[int64]project.Project
	nextID    int64
	deleted   []int64
	activity  []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		companies: map[int64]bool{1: true},
		projects:  map[int64]project.Project{},
	}
}

func (f *fakeRepo) CompanyExists(ctx context.Context, companyID int64) (bool, error) {
	return f.companies[companyID], nil
}

func (f *fakeRepo) Create(ctx context.Context, in project.CreateInput) (project.Project, error) {
	f.nextID++
	p := project.Project{ID: f.nextID, Name: in.Name, CompanyID: in.CompanyID, Status: project.StatusPlanned}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeRepo) List(ctx context.Context, archived bool, limit, offset int) ([]project.Project, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) ListRefs(ctx context.Context) ([]project.Ref, error) { return nil, nil }

func (f *fakeRepo) Get(ctx context.Context, id int64) (project.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return project.Project{}, httpx.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, in project.UpdateInput) (project.Project, error) {
	return f.Get(ctx, id)
}

func (f *fakeRepo) ToggleArchive(ctx context.Context, id int64) (bool, error) {
	p, ok := f.projects[id]
	if !ok {
		return false, httpx.ErrNotFound
	}
	p.Archived = !p.Archived
	f.projects[id] = p
	return p.Archived, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.projects[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(f.projects, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) AssignUser(ctx context.Context, projectID, userID int64) error   { return nil }
func (f *fakeRepo) UnassignUser(ctx context.Context, projectID, userID int64) error { return nil }
func (f *fakeRepo) Members(ctx context.Context, projectID int64) ([]project.Member, error) {
	return nil, nil
}

func (f *fakeRepo) AppendActivity(ctx context.Context, projectID int64, action, detail string, actorID int64) error {
	f.activity = append(f.activity, action)
	return nil
}

func (f *fakeRepo) ListActivity(ctx context.Context, projectID int64, limit, offset int) ([]project.Activity, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) Stats(ctx context.Context) (project.Stats, error) { return project.Stats{}, nil }

type fakeAttachments struct {
	acceptErr error
	accepted  []attach.Owner
	deleted   []attach.Owner
}

func (f *fakeAttachments) AcceptUploads(ctx context.Context, owner attach.Owner, uploads []attach.Upload) (attach.Result, error) {
	if f.acceptErr != nil {
		return attach.Result{}, f.acceptErr
	}
	f.accepted = append(f.accepted, owner)
	return attach.Result{}, nil
}

func (f *fakeAttachments) ListOwnerAttachments(ctx context.Context, owner attach.Owner) ([]attach.Attachment, error) {
	return nil, nil
}

func (f *fakeAttachments) DeleteOwnerAttachments(ctx context.Context, owner attach.Owner) error {
	f.deleted = append(f.deleted, owner)
	return nil
}

type fakeIssues struct {
	ids            map[int64][]int64
	deletedProject []int64
}

func (f *fakeIssues) IDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	return f.ids[projectID], nil
}

func (f *fakeIssues) DeleteByProject(ctx context.Context, projectID int64) error {
	f.deletedProject = append(f.deletedProject, projectID)
	return nil
}

func newService(repo *fakeRepo, files *fakeAttachments, issues *fakeIssues) *project.Service {
	logger := slog.New(slog.DiscardHandler)
	return project.NewService(repo, files, issues, logger)
}

func TestDeleteCascadesAttachmentsAndIssues(t *testing.T) {
	repo := newFakeRepo()
	repo.projects[7] = project.Project{ID: 7, Name: "Depot refit"}
	files := &fakeAttachments{}
	issues := &fakeIssues{ids: map[int64][]int64{7: {31, 32}}}
	svc := newService(repo, files, issues)

	require.NoError(t, svc.Delete(context.Background(), 7))

	assert.Equal(t, []attach.Owner{
		{Type: attach.OwnerIssue, ID: 31},
		{Type: attach.OwnerIssue, ID: 32},
		{Type: attach.OwnerProject, ID: 7},
	}, files.deleted)
	assert.Equal(t, []int64{7}, issues.deletedProject)
	assert.Equal(t, []int64{7}, repo.deleted)
}

func TestDeleteUnknownProject(t *testing.T) {
	repo := newFakeRepo()
	files := &fakeAttachments{}
	issues := &fakeIssues{}
	svc := newService(repo, files, issues)

	err := svc.Delete(context.Background(), 99)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, files.deleted)
	assert.Empty(t, repo.deleted)
}

func TestCreateRollsBackRowOnUploadFailure(t *testing.T) {
	repo := newFakeRepo()
	files := &fakeAttachments{acceptErr: errors.New("disk full")}
	svc := newService(repo, files, &fakeIssues{})

	_, _, err := svc.Create(context.Background(), project.CreateInput{
		Name:      "Depot refit",
		CompanyID: 1,
		CreatedBy: 5,
	}, []attach.Upload{{Filename: "plan.pdf"}})

	require.Error(t, err)
	assert.Empty(t, repo.projects, "project row should be rolled back")
}

func TestCreateRejectsUnknownCompany(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, &fakeAttachments{}, &fakeIssues{})

	_, _, err := svc.Create(context.Background(), project.CreateInput{
		Name:      "Depot refit",
		CompanyID: 42,
	}, nil)
	require.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.projects)
}

func TestToggleArchiveLogsActivity(t *testing.T) {
	repo := newFakeRepo()
	repo.projects[3] = project.Project{ID: 3}
	svc := newService(repo, &fakeAttachments{}, &fakeIssues{})

	archived, err := svc.ToggleArchive(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.True(t, archived)
	assert.Contains(t, repo.activity, "PROJECT_ARCHIVED")
}

func TestFilesPaginatesInMemory(t *testing.T) {
	repo := newFakeRepo()
	repo.projects[3] = project.Project{ID: 3}
	svc := newService(repo, &fakeAttachments{}, &fakeIssues{})

	files, pagination, err := svc.Files(context.Background(), 3, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, shared.NewPagination(1, 10, 0), pagination)
}
