package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage is a directory tree on the local filesystem. It backs the
// backup root itself and the "local" mirror target. Names are relative to
// basePath and use forward slashes.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (l *LocalStorage) Root() string {
	return l.basePath
}

func (l *LocalStorage) GetPath(elem ...string) string {
	parts := append([]string{l.basePath}, elem...)
	return filepath.Join(parts...)
}

// EnsureDir creates name and its parents when absent and reports whether it
// had to.
func (l *LocalStorage) EnsureDir(name string) (bool, error) {
	path := l.GetPath(name)
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("failed to create directory: %s is not a directory", path)
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat directory: %w", err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	return true, nil
}

// Dirs lists the names of the subdirectories of name.
func (l *LocalStorage) Dirs(name string) ([]string, error) {
	return l.entries(name, true)
}

// Files lists the names of the regular files directly under name.
func (l *LocalStorage) Files(name string) ([]string, error) {
	return l.entries(name, false)
}

func (l *LocalStorage) entries(name string, dirs bool) ([]string, error) {
	entries, err := os.ReadDir(l.GetPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if dirs && entry.IsDir() || !dirs && entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

func (l *LocalStorage) ModTime(name string) (time.Time, error) {
	info, err := os.Stat(l.GetPath(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return info.ModTime(), nil
}

// RemoveAll deletes name and everything below it.
func (l *LocalStorage) RemoveAll(name string) error {
	if err := os.RemoveAll(l.GetPath(name)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// Upload copies localPath to remoteName, creating intermediate directories.
// A partially written destination is removed on failure.
func (l *LocalStorage) Upload(ctx context.Context, localPath string, remoteName string) (err error) {
	destPath := l.GetPath(filepath.FromSlash(remoteName))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create dest directory: %w", err)
	}

	source, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest: %w", err)
	}
	defer func() {
		if cerr := dest.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close dest: %w", cerr)
		}
		if err != nil {
			os.Remove(destPath)
		}
	}()

	if _, err := dest.ReadFrom(source); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}

	return nil
}

// List returns every regular file below the root as a slash separated name.
func (l *LocalStorage) List(ctx context.Context) ([]string, error) {
	return l.walk(ctx, func(fs.FileInfo) bool { return true })
}

func (l *LocalStorage) Delete(ctx context.Context, remoteName string) error {
	filePath := l.GetPath(filepath.FromSlash(remoteName))
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	l.removeEmptyParents(filepath.Dir(filePath))
	return nil
}

// removeEmptyParents removes dir and its ancestors below the root for as long
// as they are empty.
func (l *LocalStorage) removeEmptyParents(dir string) {
	root := filepath.Clean(l.basePath)
	for {
		dir = filepath.Clean(dir)
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (l *LocalStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	return l.walk(ctx, func(info fs.FileInfo) bool {
		return info.ModTime().Before(cutoffTime)
	})
}

func (l *LocalStorage) walk(ctx context.Context, keep func(fs.FileInfo) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", path, err)
		}
		if !keep(info) {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	return files, nil
}
