package attach

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Upload is one incoming file in a batch.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Store manages physical files under a root directory together with their
// database records. Disk and database are not covered by one transaction;
// the store keeps them consistent with a fixed ordering and compensating
// cleanup: a row is only written after its file, and a failed row write
// removes the file again.
type Store struct {
	root   string
	repo   Repository
	logger *slog.Logger
}

// NewStore constructs a Store rooted at the given directory.
func NewStore(root string, repo Repository, logger *slog.Logger) *Store {
	return &Store{root: root, repo: repo, logger: logger}
}

// AcceptUploads stores a batch of files for an owner.
//
// Incoming names are compared against the owner's existing attachment rows
// and against earlier files in the same batch; collisions are reported as
// skipped, never written twice. The target path is probed against the files
// table again immediately before each write, so a row inserted by a
// concurrent batch mid-loop is still caught and cannot leave two rows
// pointing at one physical path. Any fatal error removes every file this
// batch has already written (best effort) before propagating.
func (s *Store) AcceptUploads(ctx context.Context, owner Owner, uploads []Upload) (Result, error) {
	exists, err := s.repo.OwnerExists(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, ErrOwnerNotFound
	}

	existing, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	taken := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		taken[path.Base(a.FilePath)] = struct{}{}
	}

	var result Result
	var written []string
	for _, upload := range uploads {
		name := SanitizeFilename(upload.Filename)
		if _, dup := taken[name]; dup {
			result.Skipped = append(result.Skipped, Skipped{
				Filename: name,
				Message:  "File already exists for this owner.",
			})
			continue
		}
		taken[name] = struct{}{}

		relPath := path.Join(owner.Type.Dir(), name)
		recorded, err := s.repo.PathExists(ctx, relPath)
		if err != nil {
			s.cleanupBatch(written)
			return Result{}, err
		}
		if recorded {
			result.Skipped = append(result.Skipped, Skipped{
				Filename: name,
				Message:  "File already exists for this owner.",
			})
			continue
		}
		if err := s.writeFile(relPath, upload.Content); err != nil {
			s.cleanupBatch(written)
			return Result{}, fmt.Errorf("%w: %s: %v", ErrDiskWrite, name, err)
		}
		written = append(written, relPath)

		attachment, err := s.repo.Insert(ctx, owner, relPath)
		if err != nil {
			s.cleanupBatch(written)
			return Result{}, fmt.Errorf("%w: %s: %v", ErrRecordPersist, name, err)
		}
		result.Accepted = append(result.Accepted, attachment)
	}

	return result, nil
}

// ListOwnerAttachments returns the attachment records for an owner.
func (s *Store) ListOwnerAttachments(ctx context.Context, owner Owner) ([]Attachment, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// DeleteOwnerAttachments removes every attachment for the owner: physical
// unlink first, row deletion after. A missing file is treated as already
// deleted and unlink failures are logged without aborting the batch, so the
// operation is safe to retry.
func (s *Store) DeleteOwnerAttachments(ctx context.Context, owner Owner) error {
	attachments, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return err
	}

	for _, a := range attachments {
		if err := s.unlink(a.FilePath); err != nil {
			s.logger.Error("delete file from disk",
				slog.String("path", a.FilePath), slog.Any("error", err))
			continue
		}
		s.logger.Info("deleted file from disk", slog.String("path", a.FilePath))
	}

	if _, err := s.repo.DeleteByOwner(ctx, owner); err != nil {
		return err
	}
	return nil
}

// ReplaceFile writes a new physical file for an existing attachment record,
// repoints the record, and removes the old file best effort.
func (s *Store) ReplaceFile(ctx context.Context, fileID int64, upload Upload) (Attachment, error) {
	existing, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return Attachment{}, err
	}

	name := SanitizeFilename(upload.Filename)
	ext := path.Ext(name)
	newName := UniqueName(strings.TrimSuffix(name, ext), ext)
	relPath := path.Join(existing.OwnerType.Dir(), newName)

	if err := s.writeFile(relPath, upload.Content); err != nil {
		return Attachment{}, fmt.Errorf("%w: %s: %v", ErrDiskWrite, newName, err)
	}
	if err := s.repo.UpdatePath(ctx, fileID, relPath); err != nil {
		s.cleanupBatch([]string{relPath})
		if errors.Is(err, ErrFileNotFound) {
			return Attachment{}, err
		}
		return Attachment{}, fmt.Errorf("%w: %s: %v", ErrRecordPersist, newName, err)
	}

	if err := s.unlink(existing.FilePath); err != nil {
		s.logger.Warn("remove replaced file",
			slog.String("path", existing.FilePath), slog.Any("error", err))
	}

	existing.FilePath = relPath
	return existing, nil
}

// SaveSignature decodes a base64 (optionally data-URL) PNG and attaches it
// to an order under the signatures directory with a unique name.
func (s *Store) SaveSignature(ctx context.Context, orderID int64, encoded, initials string) (Attachment, error) {
	exists, err := s.repo.OwnerExists(ctx, Owner{Type: OwnerOrder, ID: orderID})
	if err != nil {
		return Attachment{}, err
	}
	if !exists {
		return Attachment{}, ErrOwnerNotFound
	}

	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Attachment{}, fmt.Errorf("attach: decode signature image: %w", err)
	}

	prefix := "signature"
	if initials = SanitizeFilename(initials); initials != "file" {
		prefix = "signature-" + initials
	}
	relPath := path.Join(OwnerSignature.Dir(), UniqueName(prefix, ".png"))

	if err := s.writeFile(relPath, strings.NewReader(string(data))); err != nil {
		return Attachment{}, fmt.Errorf("%w: signature: %v", ErrDiskWrite, err)
	}
	attachment, err := s.repo.Insert(ctx, Owner{Type: OwnerSignature, ID: orderID}, relPath)
	if err != nil {
		s.cleanupBatch([]string{relPath})
		return Attachment{}, fmt.Errorf("%w: signature: %v", ErrRecordPersist, err)
	}
	return attachment, nil
}

func (s *Store) writeFile(relPath string, content io.Reader) error {
	abs := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	f, err := os.Create(abs)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// unlink removes the file behind a relative path. A file that is already
// gone is not an error.
func (s *Store) unlink(relPath string) error {
	abs := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// cleanupBatch best-effort removes files written earlier in a failed batch.
func (s *Store) cleanupBatch(relPaths []string) {
	for _, p := range relPaths {
		if err := s.unlink(p); err != nil {
			s.logger.Error("cleanup written file",
				slog.String("path", p), slog.Any("error", err))
			continue
		}
		s.logger.Info("removed file after failed batch", slog.String("path", p))
	}
}
