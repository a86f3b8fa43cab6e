package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkDirName is the directory that holds intermediate and final clips
const WorkDirName = "time-for"

// FS implements the pipeline's file operations using the os package
type FS struct{}

// NewFS creates a new filesystem adapter
func NewFS() *FS {
	return &FS{}
}

// EnsureDir creates dir and any missing parents
func (f *FS) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create working directory %s: %w", dir, err)
	}
	return nil
}

// Rename moves src to dst, replacing dst if it exists
func (f *FS) Rename(src, dst string) error {
	return os.Rename(src, dst)
}

// ResolveWorkDir picks the run's working directory.
// An explicit directory wins; otherwise relative selects ./time-for and the default is the temp dir.
func ResolveWorkDir(configured string, relative bool) (string, error) {
	if configured != "" {
		return filepath.Abs(configured)
	}
	if relative {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(cwd, WorkDirName), nil
	}
	return filepath.Join(os.TempDir(), WorkDirName), nil
}
