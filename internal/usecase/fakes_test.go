package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/semmidev/mysqlbackup/internal/adapter/storage"
	"github.com/semmidev/mysqlbackup/internal/domain"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) record(level, template string, args ...interface{}) {
	l.lines = append(l.lines, level+" "+fmt.Sprintf(template, args...))
}

func (l *recordingLogger) Debugf(t string, args ...interface{}) { l.record("DEBUG", t, args...) }
func (l *recordingLogger) Infof(t string, args ...interface{})  { l.record("INFO", t, args...) }
func (l *recordingLogger) Warnf(t string, args ...interface{})  { l.record("WARN", t, args...) }
func (l *recordingLogger) Errorf(t string, args ...interface{}) { l.record("ERROR", t, args...) }

func (l *recordingLogger) count(level, substr string) int {
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// fakeDatabase serves a fixed schema and writes a small dump for every table
// not listed in failTables.
type fakeDatabase struct {
	schema       domain.Schema
	enumerateErr error
	failTables   map[string]bool
	enumerations int
	dumped       []string
}

func (f *fakeDatabase) Enumerate(ctx context.Context) (domain.Schema, error) {
	f.enumerations++
	if f.enumerateErr != nil {
		return nil, f.enumerateErr
	}
	return f.schema, nil
}

func (f *fakeDatabase) Dump(ctx context.Context, cmd domain.DumpCommand) error {
	f.dumped = append(f.dumped, cmd.Database+"."+cmd.Table)
	if f.failTables[cmd.Table] {
		return errors.New("exit status 2, output: Access denied")
	}
	return os.WriteFile(cmd.OutputPath, []byte("-- dump of "+cmd.Table+"\n"), 0644)
}

// fakeCompressor copies the source and fails, after leaving a partial
// destination behind, for sources containing failOn.
type fakeCompressor struct {
	failOn string
}

func (f *fakeCompressor) Extension() string { return ".gz" }

func (f *fakeCompressor) Compress(sourcePath, destPath string) error {
	if f.failOn != "" && strings.Contains(sourcePath, f.failOn) {
		os.WriteFile(destPath, []byte("partial"), 0644)
		return errors.New("invalid input")
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0644)
}

type fakeStorage struct {
	uploaded  []string
	uploadErr error
	listed    []string
	old       []string
	oldErr    error
	deleted   []string
}

func (f *fakeStorage) Upload(ctx context.Context, localPath, remoteName string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	f.uploaded = append(f.uploaded, remoteName)
	return nil
}

func (f *fakeStorage) List(ctx context.Context) ([]string, error) { return f.listed, nil }

func (f *fakeStorage) Delete(ctx context.Context, remoteName string) error {
	f.deleted = append(f.deleted, remoteName)
	return nil
}

func (f *fakeStorage) GetOldFiles(ctx context.Context, cutoff time.Time) ([]string, error) {
	return f.old, f.oldErr
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

type fakeLocker struct {
	acquireErr error
	acquired   int
	released   int
}

func (f *fakeLocker) Acquire() error {
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.acquired++
	return nil
}

func (f *fakeLocker) Release() error {
	f.released++
	return nil
}

// failingTree refuses to remove anything.
type failingTree struct {
	*storage.LocalStorage
}

func (failingTree) RemoveAll(name string) error {
	return fmt.Errorf("failed to remove %s: permission denied", name)
}
