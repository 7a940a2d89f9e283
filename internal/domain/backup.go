package domain

import (
	"context"
	"path/filepath"
	"time"
)

const RunDirPrefix = "mysqlbackup_"

// Run identifies one execution and every output path it produces.
type Run struct {
	Started time.Time
	Dir     string
}

// Stamp is the minute-resolution timestamp used in the run directory name.
func (r Run) Stamp() string {
	return r.Started.Format("200601021504")
}

// DateStamp prefixes every dump file name.
func (r Run) DateStamp() string {
	return r.Started.Format("20060102")
}

func (r Run) DatabaseDir(database string) string {
	return filepath.Join(r.Dir, database)
}

func (r Run) Name() string {
	return filepath.Base(r.Dir)
}

type Report struct {
	Run              Run
	Databases        int
	TablesDumped     int
	DumpsFailed      int
	FilesCompressed  int
	CompressFailures int
	Uploaded         int
	UploadFailures   int
	Elapsed          time.Duration
}

type BackupExecutor interface {
	Execute(ctx context.Context) (*Report, error)
}
