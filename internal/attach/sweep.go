package attach

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SweepOrphans walks the upload directories and removes files that have no
// database row and are older than the grace period. It repairs the window the
// two-phase write accepts: a file written right before a failed (and already
// compensated) or in-flight record insert.
func (s *Store) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := time.Now().Add(-grace)
	removed := 0

	for _, ownerType := range []OwnerType{OwnerProject, OwnerIssue, OwnerOrder, OwnerSignature} {
		dir := filepath.Join(s.root, filepath.FromSlash(ownerType.Dir()))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, err
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return removed, err
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}

			relPath := ownerType.Dir() + "/" + entry.Name()
			exists, err := s.repo.PathExists(ctx, relPath)
			if err != nil {
				return removed, err
			}
			if exists {
				continue
			}

			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !os.IsNotExist(err) {
				s.logger.Error("sweep orphan", slog.String("path", relPath), slog.Any("error", err))
				continue
			}
			s.logger.Info("removed orphaned upload", slog.String("path", relPath))
			removed++
		}
	}

	return removed, nil
}
