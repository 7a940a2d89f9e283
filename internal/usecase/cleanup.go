package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

var monthlyBucketPattern = regexp.MustCompile(`^[0-9]{6}$`)

const day = 24 * time.Hour

type Cleanup struct {
	tree          BackupTree
	uploadTargets []UploadTarget
	logger        Logger
	preservedDays int
	now           func() time.Time
}

func NewCleanup(
	tree BackupTree,
	uploadTargets []UploadTarget,
	logger Logger,
	preservedDays int,
) *Cleanup {
	return &Cleanup{
		tree:          tree,
		uploadTargets: uploadTargets,
		logger:        logger,
		preservedDays: preservedDays,
		now:           time.Now,
	}
}

// PruneLocal walks the YYYYMM buckets under the backup root. Empty buckets are
// removed, and so is every daily directory at least preservedDays old. Any
// other entry is left untouched. The first failed removal is returned.
func (uc *Cleanup) PruneLocal(ctx context.Context) error {
	uc.logger.Infof("Removing backups older than %d day(s) from %s", uc.preservedDays, uc.tree.Root())

	buckets, err := uc.tree.Dirs("")
	if err != nil {
		return fmt.Errorf("list backup root: %w", err)
	}

	now := uc.now()
	for _, bucket := range buckets {
		if !monthlyBucketPattern.MatchString(bucket) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		daily, err := uc.tree.Dirs(bucket)
		if err != nil {
			return fmt.Errorf("list monthly backup directory: %w", err)
		}

		if len(daily) == 0 {
			if err := uc.remove(bucket); err != nil {
				return err
			}
			continue
		}

		for _, name := range daily {
			dir := filepath.Join(bucket, name)

			modTime, err := uc.tree.ModTime(dir)
			if err != nil {
				return fmt.Errorf("age of %s: %w", dir, err)
			}

			age := ageInDays(now, modTime)
			uc.logger.Debugf("sub_days = %d (%s)", age, dir)

			if age >= uc.preservedDays {
				if err := uc.remove(dir); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (uc *Cleanup) remove(name string) error {
	path := uc.tree.GetPath(name)
	if err := uc.tree.RemoveAll(name); err != nil {
		uc.logger.Errorf("Failed to remove %s: %v", path, err)
		return fmt.Errorf("remove old backup: %w", err)
	}
	uc.logger.Infof("Removed old backup: %s", path)
	return nil
}

// ageInDays counts whole days elapsed between modTime and now.
func ageInDays(now, modTime time.Time) int {
	return int(now.Sub(modTime) / day)
}

// PruneTargets deletes remote copies older than the retention window. Errors
// are logged per target and never stop the run.
func (uc *Cleanup) PruneTargets(ctx context.Context) {
	if len(uc.uploadTargets) == 0 {
		return
	}

	cutoff := uc.now().Add(-time.Duration(uc.preservedDays) * day)

	for _, target := range uc.uploadTargets {
		if err := uc.cleanupTarget(ctx, target, cutoff); err != nil {
			uc.logger.Errorf("Cleanup failed for %s: %v", target.Name, err)
		}
	}
}

func (uc *Cleanup) cleanupTarget(ctx context.Context, target UploadTarget, cutoff time.Time) error {
	files, err := target.Storage.GetOldFiles(ctx, cutoff)
	if err != nil {
		uc.logger.Warnf("Listing old files on %s failed, falling back to names: %v", target.Name, err)
		files, err = uc.fallbackListFiles(ctx, target, cutoff)
		if err != nil {
			return err
		}
	}

	deleted := 0
	for _, filename := range files {
		if !isRunFile(filename) {
			uc.logger.Debugf("Skipping %s on %s: not a backup file", filename, target.Name)
			continue
		}

		uc.logger.Infof("Deleting old backup from %s: %s", target.Name, filename)

		if err := target.Storage.Delete(ctx, filename); err != nil {
			uc.logger.Errorf("Failed to delete %s from %s: %v", filename, target.Name, err)
		} else {
			deleted++
		}
	}

	uc.logger.Infof("Deleted %d old backup(s) from %s", deleted, target.Name)
	return nil
}

func (uc *Cleanup) fallbackListFiles(ctx context.Context, target UploadTarget, cutoff time.Time) ([]string, error) {
	files, err := target.Storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	oldFiles := make([]string, 0)
	for _, filename := range files {
		timestamp, err := extractTimestamp(filename)
		if err != nil {
			uc.logger.Warnf("Could not parse timestamp from %s: %v", filename, err)
			continue
		}

		if timestamp.Before(cutoff) {
			oldFiles = append(oldFiles, filename)
		}
	}

	return oldFiles, nil
}
