package usecase

import (
	"time"

	"github.com/semmidev/mysqlbackup/internal/domain"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// BackupTree is the backup root on disk. Names are relative to Root.
type BackupTree interface {
	Root() string
	GetPath(elem ...string) string
	EnsureDir(name string) (bool, error)
	Dirs(name string) ([]string, error)
	Files(name string) ([]string, error)
	ModTime(name string) (time.Time, error)
	RemoveAll(name string) error
}

// Database enumerates the server and dumps single tables.
type Database interface {
	domain.SchemaEnumerator
	domain.Dumper
}

type Locker interface {
	Acquire() error
	Release() error
}

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}
