package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/semmidev/mysqlbackup/internal/adapter/compressor"
	"github.com/semmidev/mysqlbackup/internal/adapter/database"
	"github.com/semmidev/mysqlbackup/internal/adapter/notifier"
	"github.com/semmidev/mysqlbackup/internal/adapter/storage"
	"github.com/semmidev/mysqlbackup/internal/config"
	"github.com/semmidev/mysqlbackup/internal/domain"
	"github.com/semmidev/mysqlbackup/internal/infrastructure/logger"
	"github.com/semmidev/mysqlbackup/internal/infrastructure/runlock"
	"github.com/semmidev/mysqlbackup/internal/infrastructure/scheduler"
	"github.com/semmidev/mysqlbackup/internal/usecase"
)

type App struct {
	config        *config.Config
	logger        *logger.Logger
	database      *database.MySQLDatabase
	uploadTargets []usecase.UploadTarget
	backupUC      *usecase.Backup
	stdout        io.Writer
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(logger.LevelFromNumeric(cfg.App.LogLevel), cfg.App.LogHandler, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	tree, err := storage.NewLocal(cfg.DefaultPath.BackupRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	uploadTargets, notifiers := initializeTargets(ctx, cfg, log)

	db := database.NewMySQL(&cfg.MySQL)

	cleanupUC := usecase.NewCleanup(tree, uploadTargets, log, cfg.Backup.PreservedDays)

	backupUC := usecase.NewBackup(
		tree,
		db,
		compressor.NewGzip(),
		cleanupUC,
		uploadTargets,
		notifiers,
		runlock.New(cfg.LockPath()),
		log,
		usecase.BackupOptions{
			Dump: usecase.DumpOptions{
				Program:   cfg.Backup.DumpCommand,
				User:      cfg.MySQL.User,
				Password:  cfg.MySQL.PlainPassword(),
				ExtraArgs: cfg.Backup.ExtraArgs,
			},
			KeepOriginal: cfg.Backup.KeepOriginal,
		},
	)

	return &App{
		config:        cfg,
		logger:        log,
		database:      db,
		uploadTargets: uploadTargets,
		backupUC:      backupUC,
		stdout:        os.Stdout,
	}, nil
}

// initializeTargets builds the enabled offsite targets and notifiers. A target
// that cannot be set up is logged and skipped.
func initializeTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]usecase.UploadTarget, []domain.Notifier) {
	var (
		targets   []usecase.UploadTarget
		notifiers []domain.Notifier
	)

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "s3":
			stor, err = storage.NewS3(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 upload enabled (bucket: %s)", targetCfg.Bucket)

		case "gdrive":
			stor, err = storage.NewGDrive(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive upload enabled")

		case "local":
			if targetCfg.Path == "" {
				log.Errorf("Failed to initialize local mirror: path is required")
				continue
			}
			stor, err = storage.NewLocal(targetCfg.Path)
			if err != nil {
				log.Errorf("Failed to initialize local mirror: %v", err)
				continue
			}
			log.Infof("✓ Local mirror enabled (%s)", targetCfg.Path)

		case "telegram":
			n, err := notifier.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			notifiers = append(notifiers, n)
			log.Infof("✓ Telegram notifications enabled")
			continue

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets, notifiers
}

// Run performs a single backup, or keeps running scheduled backups until ctx
// is cancelled when a schedule is configured.
func (a *App) Run(ctx context.Context) error {
	if a.config.App.Schedule == "" {
		return a.RunOnce(ctx)
	}
	return a.runScheduled(ctx)
}

func (a *App) RunOnce(ctx context.Context) error {
	report, err := a.backupUC.Execute(ctx)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	fmt.Fprintf(a.stdout, "elapsed time is %.3f sec. %s finished.\n", report.Elapsed.Seconds(), report.Run.Name())
	return nil
}

func (a *App) runScheduled(ctx context.Context) error {
	if err := a.database.Ping(ctx); err != nil {
		a.logger.Errorf("Failed to connect to %s: %v", a.database.Addr(), err)
	} else {
		a.logger.Infof("✓ Connected to %s", a.database.Addr())
	}

	sched := scheduler.New(ctx, a.logger, func(err error) {
		a.logger.Errorf("Scheduled backup failed: %v", err)
	})

	if err := sched.AddJob(a.config.App.Schedule, func(ctx context.Context) error {
		a.logger.Infof("=== Triggered scheduled backup ===")
		_, err := a.backupUC.Execute(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}

	sched.Start()
	a.logger.Infof("Scheduler started: %s", a.config.App.Schedule)
	a.logger.Infof("Backup destinations: local + %d remote target(s)", len(a.uploadTargets))

	<-ctx.Done()

	a.logger.Infof("Stopping scheduler...")
	sched.Stop()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.logger.Close()
}
