// Package paths prepares the directories a run writes into.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kass/go-geodsd/pkg/models"
)

const dirPerm = 0755

// EnsureDir creates path and any missing parents. An existing directory is not an error.
func EnsureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w: %w", path, models.ErrDirectory, err)
	}
	return nil
}

// EnsureParent creates the directory that will hold file
func EnsureParent(file string) error {
	if file == "" {
		return nil
	}
	return EnsureDir(filepath.Dir(file))
}

// EnsureParents runs EnsureParent for every non-empty file path, stopping at the first failure
func EnsureParents(files ...string) error {
	for _, f := range files {
		if err := EnsureParent(f); err != nil {
			return err
		}
	}
	return nil
}
