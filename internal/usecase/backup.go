package usecase

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/mysqlbackup/internal/domain"
)

type BackupOptions struct {
	Dump         DumpOptions
	KeepOriginal bool
}

type Backup struct {
	tree          BackupTree
	db            Database
	compressor    domain.Compressor
	planner       *Planner
	cleanup       *Cleanup
	uploadTargets []UploadTarget
	notifiers     []domain.Notifier
	lock          Locker
	logger        Logger
	opts          BackupOptions
	now           func() time.Time
}

func NewBackup(
	tree BackupTree,
	db Database,
	compressor domain.Compressor,
	cleanup *Cleanup,
	uploadTargets []UploadTarget,
	notifiers []domain.Notifier,
	lock Locker,
	logger Logger,
	opts BackupOptions,
) *Backup {
	return &Backup{
		tree:          tree,
		db:            db,
		compressor:    compressor,
		planner:       NewPlanner(tree, db, logger),
		cleanup:       cleanup,
		uploadTargets: uploadTargets,
		notifiers:     notifiers,
		lock:          lock,
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}
}

// Execute performs one complete run. Directory creation, enumeration and
// local pruning failures abort it; a failed dump, compression or upload is
// logged and counted in the report.
func (uc *Backup) Execute(ctx context.Context) (*domain.Report, error) {
	start := uc.now()
	run := NewRun(uc.tree.Root(), start)
	report := &domain.Report{Run: run}

	if uc.lock != nil {
		if err := uc.lock.Acquire(); err != nil {
			return report, uc.fail(ctx, run, err)
		}
		defer func() {
			if err := uc.lock.Release(); err != nil {
				uc.logger.Warnf("Failed to release run lock: %v", err)
			}
		}()
	}

	uc.logger.Infof("Backup start. Date: %s, directory: %s", run.DateStamp(), run.Dir)

	if _, err := uc.planner.Prepare(ctx, run); err != nil {
		return report, uc.fail(ctx, run, err)
	}

	if err := uc.cleanup.PruneLocal(ctx); err != nil {
		return report, uc.fail(ctx, run, err)
	}

	schema, err := enumerate(ctx, uc.db, uc.logger)
	if err != nil {
		return report, uc.fail(ctx, run, err)
	}
	report.Databases = len(schema)

	uc.logger.Infof("Creating dump commands...")
	cmds := BuildDumpCommands(run, schema, uc.opts.Dump)

	if err := uc.dumpAll(ctx, cmds, report); err != nil {
		return report, uc.fail(ctx, run, err)
	}

	uc.compressAll(run, report)

	if len(uc.uploadTargets) > 0 {
		uc.uploadAll(ctx, run, report)
		uc.cleanup.PruneTargets(ctx)
	}

	report.Elapsed = uc.now().Sub(start)
	uc.logger.Infof("Elapsed time is %.3f sec. Backup %s finished: %d table(s) dumped, %d failed, %d file(s) compressed",
		report.Elapsed.Seconds(), run.Name(), report.TablesDumped, report.DumpsFailed, report.FilesCompressed)

	uc.notify(ctx, summary(report))

	return report, nil
}

func (uc *Backup) dumpAll(ctx context.Context, cmds []domain.DumpCommand, report *domain.Report) error {
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("dump interrupted: %w", err)
		}

		uc.logger.Debugf("Dumping %s.%s", cmd.Database, cmd.Table)
		if err := uc.db.Dump(ctx, cmd); err != nil {
			uc.logger.Errorf("An error occurred during execution of following command: %s: %v", cmd, err)
			report.DumpsFailed++
			continue
		}

		uc.logger.Infof("Dump succeeded. Dump file is saved %s", cmd.OutputPath)
		report.TablesDumped++
	}

	uc.logger.Infof("Completed dump process")
	return nil
}

// compressAll compresses every file under every database directory of run.
// A file that fails keeps its original and gets no compressed sibling.
func (uc *Backup) compressAll(run domain.Run, report *domain.Report) {
	uc.logger.Infof("Start compression")
	ext := uc.compressor.Extension()

	dirs, err := uc.tree.Dirs(run.Name())
	if err != nil {
		uc.logger.Errorf("Failed to list %s: %v", run.Dir, err)
		return
	}

	for _, dir := range dirs {
		files, err := uc.tree.Files(filepath.Join(run.Name(), dir))
		if err != nil {
			uc.logger.Errorf("Failed to list %s: %v", run.DatabaseDir(dir), err)
			continue
		}

		for _, file := range files {
			if strings.HasSuffix(file, ext) {
				continue
			}

			name := filepath.Join(run.Name(), dir, file)
			source := uc.tree.GetPath(name)

			if err := uc.compressor.Compress(source, source+ext); err != nil {
				uc.logger.Errorf("Failed to compress %s: %v", source, err)
				if rmErr := uc.tree.RemoveAll(name + ext); rmErr != nil {
					uc.logger.Warnf("Failed to remove partial %s: %v", source+ext, rmErr)
				}
				report.CompressFailures++
				continue
			}
			report.FilesCompressed++

			if uc.opts.KeepOriginal {
				continue
			}
			if err := uc.tree.RemoveAll(name); err != nil {
				uc.logger.Errorf("Failed to remove %s after compression: %v", source, err)
			}
		}
	}

	uc.logger.Infof("Completed compressing dump files")
}

// uploadAll copies every file left in run to each target, one at a time.
func (uc *Backup) uploadAll(ctx context.Context, run domain.Run, report *domain.Report) {
	dirs, err := uc.tree.Dirs(run.Name())
	if err != nil {
		uc.logger.Errorf("Failed to list %s: %v", run.Dir, err)
		return
	}

	for _, target := range uc.uploadTargets {
		uc.logger.Infof("Uploading %s to %s...", run.Name(), target.Name)

		for _, dir := range dirs {
			files, err := uc.tree.Files(filepath.Join(run.Name(), dir))
			if err != nil {
				uc.logger.Errorf("Failed to list %s: %v", run.DatabaseDir(dir), err)
				continue
			}

			for _, file := range files {
				if ctx.Err() != nil {
					return
				}

				localPath := uc.tree.GetPath(run.Name(), dir, file)
				remoteName := path.Join(run.Name(), dir, file)

				if err := target.Storage.Upload(ctx, localPath, remoteName); err != nil {
					uc.logger.Errorf("Failed to upload %s to %s: %v", remoteName, target.Name, err)
					report.UploadFailures++
					continue
				}
				report.Uploaded++
			}
		}

		uc.logger.Infof("Finished uploading to %s", target.Name)
	}
}

func (uc *Backup) fail(ctx context.Context, run domain.Run, err error) error {
	uc.logger.Errorf("Backup %s aborted: %v", run.Name(), err)
	uc.notify(ctx, fmt.Sprintf("❌ Backup %s failed\n\n%v", run.Name(), err))
	return err
}

func (uc *Backup) notify(ctx context.Context, message string) {
	for _, n := range uc.notifiers {
		if err := n.Notify(ctx, message); err != nil {
			uc.logger.Errorf("Failed to send notification: %v", err)
		}
	}
}

func summary(r *domain.Report) string {
	status := "✅"
	if r.DumpsFailed > 0 || r.CompressFailures > 0 || r.UploadFailures > 0 {
		status = "⚠️"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Backup %s finished\n\n", status, r.Run.Name())
	fmt.Fprintf(&b, "🗄 Databases: %d\n", r.Databases)
	fmt.Fprintf(&b, "📄 Tables dumped: %d (failed: %d)\n", r.TablesDumped, r.DumpsFailed)
	fmt.Fprintf(&b, "📦 Files compressed: %d (failed: %d)\n", r.FilesCompressed, r.CompressFailures)
	if r.Uploaded > 0 || r.UploadFailures > 0 {
		fmt.Fprintf(&b, "☁️ Uploads: %d (failed: %d)\n", r.Uploaded, r.UploadFailures)
	}
	fmt.Fprintf(&b, "🕐 Elapsed: %s", r.Elapsed.Round(time.Second))
	return b.String()
}
