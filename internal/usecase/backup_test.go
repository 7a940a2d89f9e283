package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/mysqlbackup/internal/adapter/compressor"
	"github.com/semmidev/mysqlbackup/internal/adapter/storage"
	"github.com/semmidev/mysqlbackup/internal/domain"
)

type backupFixture struct {
	root     string
	tree     *storage.LocalStorage
	db       *fakeDatabase
	logger   *recordingLogger
	notifier *fakeNotifier
	lock     *fakeLocker
	now      time.Time
}

func newBackupFixture() *backupFixture {
	root, err := os.MkdirTemp("", "backup_test")
	So(err, ShouldBeNil)

	tree, err := storage.NewLocal(root)
	So(err, ShouldBeNil)

	return &backupFixture{
		root: root,
		tree: tree,
		db: &fakeDatabase{schema: domain.Schema{
			{Name: "app", Tables: []string{"users", "orders"}},
			{Name: "crm", Tables: []string{"leads"}},
		}},
		logger:   &recordingLogger{},
		notifier: &fakeNotifier{},
		lock:     &fakeLocker{},
		now:      time.Date(2024, 1, 2, 15, 30, 0, 0, time.Local),
	}
}

func (f *backupFixture) build(comp domain.Compressor, targets []UploadTarget, opts BackupOptions) *Backup {
	cleanup := NewCleanup(f.tree, targets, f.logger, 3)
	cleanup.now = func() time.Time { return f.now }

	if opts.Dump.Program == "" {
		opts.Dump = DumpOptions{Program: "mysqldump", User: "backup", Password: "secret"}
	}

	uc := NewBackup(f.tree, f.db, comp, cleanup, targets, []domain.Notifier{f.notifier}, f.lock, f.logger, opts)
	uc.now = func() time.Time { return f.now }
	return uc
}

func (f *backupFixture) dumpPath(db, table string) string {
	return filepath.Join(f.root, "mysqlbackup_202401021530", db, "20240102_"+table+".sql")
}

func TestBackupExecute(t *testing.T) {
	Convey("Given a Backup use case", t, func() {
		f := newBackupFixture()
		defer os.RemoveAll(f.root)
		ctx := context.Background()

		Convey("When every step succeeds", func() {
			uc := f.build(compressor.NewGzip(), nil, BackupOptions{})
			report, err := uc.Execute(ctx)

			Convey("It should dump and compress every table", func() {
				So(err, ShouldBeNil)
				So(report.Run.Dir, ShouldEqual, filepath.Join(f.root, "mysqlbackup_202401021530"))
				So(report.Databases, ShouldEqual, 2)
				So(report.TablesDumped, ShouldEqual, 3)
				So(report.DumpsFailed, ShouldEqual, 0)
				So(report.FilesCompressed, ShouldEqual, 3)

				So(f.db.dumped, ShouldResemble, []string{"app.users", "app.orders", "crm.leads"})
				for _, p := range []string{f.dumpPath("app", "users"), f.dumpPath("app", "orders"), f.dumpPath("crm", "leads")} {
					So(exists(p), ShouldBeFalse)
					So(exists(p+".gz"), ShouldBeTrue)
				}
			})

			Convey("It should enumerate twice and hold the lock", func() {
				So(f.db.enumerations, ShouldEqual, 2)
				So(f.lock.acquired, ShouldEqual, 1)
				So(f.lock.released, ShouldEqual, 1)
			})

			Convey("It should log the elapsed time and notify", func() {
				So(f.logger.count("INFO", "Elapsed time is"), ShouldEqual, 1)
				So(f.notifier.messages, ShouldHaveLength, 1)
				So(f.notifier.messages[0], ShouldContainSubstring, "Tables dumped: 3 (failed: 0)")
			})
		})

		Convey("When one dump fails", func() {
			f.db.failTables = map[string]bool{"users": true}
			uc := f.build(compressor.NewGzip(), nil, BackupOptions{})
			report, err := uc.Execute(ctx)

			Convey("It should still attempt the remaining tables", func() {
				So(err, ShouldBeNil)
				So(f.db.dumped, ShouldResemble, []string{"app.users", "app.orders", "crm.leads"})
				So(report.TablesDumped, ShouldEqual, 2)
				So(report.DumpsFailed, ShouldEqual, 1)
				So(exists(f.dumpPath("app", "orders")+".gz"), ShouldBeTrue)
				So(exists(f.dumpPath("crm", "leads")+".gz"), ShouldBeTrue)
			})

			Convey("It should log the failed command without the password", func() {
				So(f.logger.count("ERROR", "-R app users"), ShouldEqual, 1)
				So(f.logger.count("ERROR", "secret"), ShouldEqual, 0)
				So(f.logger.count("INFO", "Dump file is saved"), ShouldEqual, 2)
				So(f.notifier.messages[0], ShouldContainSubstring, "⚠️")
			})
		})

		Convey("When compressing one file fails", func() {
			uc := f.build(&fakeCompressor{failOn: "orders"}, nil, BackupOptions{})
			report, err := uc.Execute(ctx)

			Convey("It should keep that original and create no compressed sibling", func() {
				So(err, ShouldBeNil)
				So(report.FilesCompressed, ShouldEqual, 2)
				So(report.CompressFailures, ShouldEqual, 1)

				So(exists(f.dumpPath("app", "orders")), ShouldBeTrue)
				So(exists(f.dumpPath("app", "orders")+".gz"), ShouldBeFalse)

				So(exists(f.dumpPath("app", "users")), ShouldBeFalse)
				So(exists(f.dumpPath("app", "users")+".gz"), ShouldBeTrue)
				So(f.logger.count("ERROR", "Failed to compress"), ShouldEqual, 1)
			})
		})

		Convey("When originals are kept", func() {
			uc := f.build(compressor.NewGzip(), nil, BackupOptions{KeepOriginal: true})
			_, err := uc.Execute(ctx)

			Convey("Both files should exist", func() {
				So(err, ShouldBeNil)
				So(exists(f.dumpPath("app", "users")), ShouldBeTrue)
				So(exists(f.dumpPath("app", "users")+".gz"), ShouldBeTrue)
			})
		})

		Convey("When enumeration fails", func() {
			f.db.enumerateErr = errors.New("dial tcp: connection refused")
			uc := f.build(compressor.NewGzip(), nil, BackupOptions{})
			_, err := uc.Execute(ctx)

			Convey("It should abort before dumping and report the failure", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "connection refused")
				So(f.db.dumped, ShouldBeEmpty)
				So(f.notifier.messages, ShouldHaveLength, 1)
				So(f.notifier.messages[0], ShouldContainSubstring, "failed")
				So(f.lock.released, ShouldEqual, 1)
			})
		})

		Convey("When pruning fails", func() {
			makeDir(filepath.Join(f.root, "202312", "01"), f.now.Add(-10*day))

			cleanup := NewCleanup(failingTree{f.tree}, nil, f.logger, 3)
			cleanup.now = func() time.Time { return f.now }
			uc := NewBackup(f.tree, f.db, compressor.NewGzip(), cleanup, nil, nil, nil, f.logger,
				BackupOptions{Dump: DumpOptions{Program: "mysqldump"}})
			uc.now = func() time.Time { return f.now }

			_, err := uc.Execute(ctx)

			Convey("No dump should be attempted", func() {
				So(err, ShouldNotBeNil)
				So(f.db.dumped, ShouldBeEmpty)
				So(f.db.enumerations, ShouldEqual, 1)
			})
		})

		Convey("When old backups exist", func() {
			makeDir(filepath.Join(f.root, "202312", "01"), f.now.Add(-10*day))
			makeDir(filepath.Join(f.root, "202312", "31"), f.now.Add(-2*day))

			uc := f.build(compressor.NewGzip(), nil, BackupOptions{})
			_, err := uc.Execute(ctx)

			Convey("They should be pruned before dumping", func() {
				So(err, ShouldBeNil)
				So(exists(filepath.Join(f.root, "202312", "01")), ShouldBeFalse)
				So(exists(filepath.Join(f.root, "202312", "31")), ShouldBeTrue)
			})
		})

		Convey("When another run holds the lock", func() {
			f.lock.acquireErr = errors.New("another backup run is in progress")
			uc := f.build(compressor.NewGzip(), nil, BackupOptions{})
			_, err := uc.Execute(ctx)

			Convey("It should do nothing", func() {
				So(err, ShouldNotBeNil)
				So(f.db.enumerations, ShouldEqual, 0)
				So(f.lock.released, ShouldEqual, 0)
				So(exists(filepath.Join(f.root, "mysqlbackup_202401021530")), ShouldBeFalse)
			})
		})

		Convey("When upload targets are configured", func() {
			good := &fakeStorage{}
			bad := &fakeStorage{uploadErr: errors.New("quota exceeded")}
			targets := []UploadTarget{{Name: "s3", Storage: good}, {Name: "gdrive", Storage: bad}}

			uc := f.build(compressor.NewGzip(), targets, BackupOptions{})
			report, err := uc.Execute(ctx)

			Convey("Every compressed file should be uploaded under the run name", func() {
				So(err, ShouldBeNil)
				So(good.uploaded, ShouldResemble, []string{
					"mysqlbackup_202401021530/app/20240102_orders.sql.gz",
					"mysqlbackup_202401021530/app/20240102_users.sql.gz",
					"mysqlbackup_202401021530/crm/20240102_leads.sql.gz",
				})
				So(report.Uploaded, ShouldEqual, 3)
				So(report.UploadFailures, ShouldEqual, 3)
				So(f.logger.count("ERROR", "to gdrive"), ShouldEqual, 3)
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			uc := f.build(compressor.NewGzip(), nil, BackupOptions{})
			_, err := uc.Execute(cancelled)

			Convey("It should stop before dumping", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(f.db.dumped, ShouldBeEmpty)
			})
		})
	})
}
