package attach_test

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/internal/attach"
)

type fakeRepo struct {
	owners    map[attach.Owner]bool
	rows      []attach.Attachment
	nextID    int64
	insertErr error
}

func newFakeRepo(owners ...attach.Owner) *fakeRepo {
	m := make(map[attach.Owner]bool, len(owners))
	for _, o := range owners {
		m[o] = true
	}
	return &fakeRepo{owners: m}
}

func (f *fakeRepo) OwnerExists(ctx context.Context, owner attach.Owner) (bool, error) {
	if owner.Type == attach.OwnerSignature {
		owner.Type = attach.OwnerOrder
	}
	return f.owners[owner], nil
}

func (f *fakeRepo) ListByOwner(ctx context.Context, owner attach.Owner) ([]attach.Attachment, error) {
	var out []attach.Attachment
	for _, row := range f.rows {
		if row.OwnerType == owner.Type && row.OwnerID == owner.ID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRepo) Insert(ctx context.Context, owner attach.Owner, filePath string) (attach.Attachment, error) {
	if f.insertErr != nil {
		return attach.Attachment{}, f.insertErr
	}
	f.nextID++
	row := attach.Attachment{
		ID:        f.nextID,
		OwnerType: owner.Type,
		OwnerID:   owner.ID,
		FilePath:  filePath,
		CreatedAt: time.Now(),
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeRepo) DeleteByOwner(ctx context.Context, owner attach.Owner) (int64, error) {
	kept := f.rows[:0]
	var deleted int64
	for _, row := range f.rows {
		if row.OwnerType == owner.Type && row.OwnerID == owner.ID {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id int64) (attach.Attachment, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return attach.Attachment{}, attach.ErrFileNotFound
}

func (f *fakeRepo) UpdatePath(ctx context.Context, id int64, filePath string) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].FilePath = filePath
			return nil
		}
	}
	return attach.ErrFileNotFound
}

func (f *fakeRepo) PathExists(ctx context.Context, filePath string) (bool, error) {
	for _, row := range f.rows {
		if row.FilePath == filePath {
			return true, nil
		}
	}
	return false, nil
}

func newStore(t *testing.T, repo attach.Repository) (*attach.Store, string) {
	t.Helper()
	root := t.TempDir()
	return attach.NewStore(root, repo, slog.New(slog.DiscardHandler)), root
}

func upload(name, content string) attach.Upload {
	return attach.Upload{Filename: name, Content: strings.NewReader(content)}
}

func fileExists(t *testing.T, root, relPath string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(relPath)))
	if err == nil {
		return true
	}
	require.True(t, os.IsNotExist(err))
	return false
}

func TestAcceptUploadsOwnerNotFound(t *testing.T) {
	store, root := newStore(t, newFakeRepo())

	_, err := store.AcceptUploads(context.Background(),
		attach.Owner{Type: attach.OwnerProject, ID: 1},
		[]attach.Upload{upload("a.png", "data")})

	assert.ErrorIs(t, err, attach.ErrOwnerNotFound)
	// Validation happens before any write.
	assert.False(t, fileExists(t, root, "uploads/projects/a.png"))
}

func TestAcceptUploadsWritesFileThenRecord(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerProject, ID: 1}
	repo := newFakeRepo(owner)
	store, root := newStore(t, repo)

	result, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("plan.pdf", "pdf-bytes")})
	require.NoError(t, err)

	require.Len(t, result.Accepted, 1)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, "uploads/projects/plan.pdf", result.Accepted[0].FilePath)
	assert.True(t, fileExists(t, root, "uploads/projects/plan.pdf"))

	data, err := os.ReadFile(filepath.Join(root, "uploads", "projects", "plan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
}

func TestAcceptUploadsDuplicateWithinBatch(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerProject, ID: 1}
	repo := newFakeRepo(owner)
	store, _ := newStore(t, repo)

	result, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("a.png", "one"), upload("a.png", "two")})
	require.NoError(t, err)

	assert.Len(t, result.Accepted, 1)
	assert.Len(t, result.Skipped, 1)
	assert.Equal(t, "a.png", result.Skipped[0].Filename)
	assert.Len(t, repo.rows, 1, "one record, never two rows for one path")
}

func TestAcceptUploadsDuplicateAgainstExistingRows(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerIssue, ID: 3}
	repo := newFakeRepo(owner)
	store, _ := newStore(t, repo)

	_, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("photo.jpg", "v1")})
	require.NoError(t, err)

	result, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("photo.jpg", "v2"), upload("other.jpg", "x")})
	require.NoError(t, err)

	assert.Len(t, result.Accepted, 1)
	assert.Equal(t, "uploads/issues/other.jpg", result.Accepted[0].FilePath)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "photo.jpg", result.Skipped[0].Filename)
}

func TestAcceptUploadsCatchesRowInsertedMidBatch(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerProject, ID: 9}
	repo := newFakeRepo(owner)
	store, _ := newStore(t, repo)

	// A rival batch lands a row for b.png while this batch is inserting
	// a.png. The pre-write probe must catch it.
	rival := &racingRepo{fakeRepo: repo, owner: owner}
	store = attach.NewStore(t.TempDir(), rival, slog.New(slog.DiscardHandler))

	result, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("a.png", "a"), upload("b.png", "b")})
	require.NoError(t, err)

	assert.Len(t, result.Accepted, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "b.png", result.Skipped[0].Filename)

	var count int
	for _, row := range repo.rows {
		if row.FilePath == "uploads/projects/b.png" {
			count++
		}
	}
	assert.Equal(t, 1, count, "one physical path must never have two rows")
}

type racingRepo struct {
	*fakeRepo
	owner attach.Owner
	raced bool
}

func (r *racingRepo) Insert(ctx context.Context, owner attach.Owner, filePath string) (attach.Attachment, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.fakeRepo.Insert(ctx, r.owner, "uploads/projects/b.png"); err != nil {
			return attach.Attachment{}, err
		}
	}
	return r.fakeRepo.Insert(ctx, owner, filePath)
}

func TestAcceptUploadsCompensatingCleanupOnPersistFailure(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerOrder, ID: 5}
	repo := newFakeRepo(owner)
	repo.insertErr = errors.New("connection reset")
	store, root := newStore(t, repo)

	_, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("invoice.pdf", "data")})

	assert.ErrorIs(t, err, attach.ErrRecordPersist)
	assert.False(t, fileExists(t, root, "uploads/orders/invoice.pdf"),
		"file written before the failed insert must be removed")
}

func TestAcceptUploadsCleansWholeBatchOnFailure(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerOrder, ID: 5}
	repo := newFakeRepo(owner)
	store, root := newStore(t, repo)

	failAfter := 1
	repoWrapped := &failingAfterRepo{fakeRepo: repo, failAfter: &failAfter}
	store = attach.NewStore(root, repoWrapped, slog.New(slog.DiscardHandler))

	_, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("a.pdf", "a"), upload("b.pdf", "b")})

	assert.ErrorIs(t, err, attach.ErrRecordPersist)
	assert.False(t, fileExists(t, root, "uploads/orders/a.pdf"))
	assert.False(t, fileExists(t, root, "uploads/orders/b.pdf"))
}

type failingAfterRepo struct {
	*fakeRepo
	failAfter *int
}

func (f *failingAfterRepo) Insert(ctx context.Context, owner attach.Owner, filePath string) (attach.Attachment, error) {
	if *f.failAfter == 0 {
		return attach.Attachment{}, errors.New("constraint violation")
	}
	*f.failAfter--
	return f.fakeRepo.Insert(ctx, owner, filePath)
}

func TestDeleteOwnerAttachmentsRemovesFilesAndRows(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerProject, ID: 2}
	repo := newFakeRepo(owner)
	store, root := newStore(t, repo)

	_, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("a.png", "a"), upload("b.png", "b")})
	require.NoError(t, err)

	require.NoError(t, store.DeleteOwnerAttachments(context.Background(), owner))
	assert.Empty(t, repo.rows)
	assert.False(t, fileExists(t, root, "uploads/projects/a.png"))
	assert.False(t, fileExists(t, root, "uploads/projects/b.png"))
}

func TestDeleteOwnerAttachmentsIsIdempotent(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerProject, ID: 2}
	repo := newFakeRepo(owner)
	store, _ := newStore(t, repo)

	_, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("a.png", "a")})
	require.NoError(t, err)

	require.NoError(t, store.DeleteOwnerAttachments(context.Background(), owner))
	// Second run finds zero rows and zero files and succeeds as a no-op.
	require.NoError(t, store.DeleteOwnerAttachments(context.Background(), owner))
}

func TestDeleteOwnerAttachmentsSurvivesMissingFile(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerIssue, ID: 9}
	repo := newFakeRepo(owner)
	store, root := newStore(t, repo)

	_, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("a.png", "a"), upload("b.png", "b")})
	require.NoError(t, err)

	// Simulate a prior partial run that already unlinked one file.
	require.NoError(t, os.Remove(filepath.Join(root, "uploads", "issues", "a.png")))

	require.NoError(t, store.DeleteOwnerAttachments(context.Background(), owner))
	assert.Empty(t, repo.rows)
	assert.False(t, fileExists(t, root, "uploads/issues/b.png"))
}

func TestReplaceFileRepointsRecordAndUnlinksOld(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerProject, ID: 4}
	repo := newFakeRepo(owner)
	store, root := newStore(t, repo)

	result, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("spec.docx", "v1")})
	require.NoError(t, err)
	original := result.Accepted[0]

	updated, err := store.ReplaceFile(context.Background(), original.ID, upload("spec.docx", "v2"))
	require.NoError(t, err)

	assert.NotEqual(t, original.FilePath, updated.FilePath)
	assert.True(t, strings.HasPrefix(updated.FilePath, "uploads/projects/spec-"))
	assert.False(t, fileExists(t, root, original.FilePath))
	assert.True(t, fileExists(t, root, updated.FilePath))
}

func TestReplaceFileUnknownID(t *testing.T) {
	store, _ := newStore(t, newFakeRepo())
	_, err := store.ReplaceFile(context.Background(), 42, upload("x.png", "x"))
	assert.ErrorIs(t, err, attach.ErrFileNotFound)
}

func TestSaveSignatureDecodesDataURL(t *testing.T) {
	order := attach.Owner{Type: attach.OwnerOrder, ID: 7}
	repo := newFakeRepo(order)
	store, root := newStore(t, repo)

	png := []byte{0x89, 'P', 'N', 'G'}
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	attachment, err := store.SaveSignature(context.Background(), 7, encoded, "JD")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(attachment.FilePath, "uploads/signatures/signature-JD-"))
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(attachment.FilePath)))
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestSaveSignatureUnknownOrder(t *testing.T) {
	store, _ := newStore(t, newFakeRepo())
	_, err := store.SaveSignature(context.Background(), 1, base64.StdEncoding.EncodeToString([]byte("x")), "")
	assert.ErrorIs(t, err, attach.ErrOwnerNotFound)
}

func TestSweepOrphansRemovesUntrackedFiles(t *testing.T) {
	owner := attach.Owner{Type: attach.OwnerProject, ID: 1}
	repo := newFakeRepo(owner)
	store, root := newStore(t, repo)

	_, err := store.AcceptUploads(context.Background(), owner,
		[]attach.Upload{upload("tracked.png", "t")})
	require.NoError(t, err)

	orphan := filepath.Join(root, "uploads", "projects", "orphan.png")
	require.NoError(t, os.WriteFile(orphan, []byte("o"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(orphan, old, old))

	removed, err := store.SweepOrphans(context.Background(), time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.False(t, fileExists(t, root, "uploads/projects/orphan.png"))
	assert.True(t, fileExists(t, root, "uploads/projects/tracked.png"))
}

func TestSweepOrphansRespectsGracePeriod(t *testing.T) {
	store, root := newStore(t, newFakeRepo())

	dir := filepath.Join(root, "uploads", "orders")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.pdf"), []byte("f"), 0o644))

	removed, err := store.SweepOrphans(context.Background(), time.Hour)
	require.NoError(t, err)

	assert.Zero(t, removed)
	assert.True(t, fileExists(t, root, "uploads/orders/fresh.pdf"))
}
