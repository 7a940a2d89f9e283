package domain

import (
	"context"
	"time"
)

// Storage is an offsite copy of the backup tree. Remote names are slash
// separated paths relative to the target's root, e.g.
// "mysqlbackup_202401021530/app/20240102_users.sql.gz".
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}
